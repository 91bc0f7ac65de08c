package f95zone

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/auth"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/query"
	"f95api/lib/platforms/f95zone/scrape"
	"f95api/lib/telemetry"
	"f95api/lib/testutil"

	"github.com/stretchr/testify/require"
)

const (
	landingPage       = `<html data-logged-in="false"><body><input type="hidden" name="_xfToken" value="token"></body></html>`
	loggedInPage      = `<html data-logged-in="true"><body></body></html>`
	wrongPasswordPage = `<html data-logged-in="false"><body>
		<div class="blockMessage blockMessage--error">Incorrect password. Please try again.</div>
	</body></html>`
	platformPage = `<html><head><script>
	var latestUpdates = {
		prefixes: {
			games: [
				{id: 1, name: "Engine", prefixes: [{id: 7, name: "Ren'Py"}]},
				{id: 4, name: "Status", prefixes: [{id: 18, name: "Completed"}]},
			],
		},
		tags: {"45": "3d game"},
	};
	</script></head><body></body></html>`
)

func handiworkPage(name, version string) string {
	return fmt.Sprintf(`<html><body>
<h1 class="p-title-value"><a class="labelLink"><span class="label">Ren'Py</span></a>%s [%s] [Dev]</h1>
<article class="message" data-content="post-1">
	<div class="message-body"><div class="bbWrapper"><b>Version</b>: %s<br><b>Thread Updated</b>: 2024-03-04</div></div>
</article>
</body></html>`, name, version, version)
}

type fixture struct {
	forum  *testutil.Forum
	client *Client
	dir    string
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLogin(t, loggedInPage)
}

// newFixtureWithLogin answers every login attempt with `loginPage`.
func newFixtureWithLogin(t *testing.T, loginPage string) *fixture {
	forum := testutil.NewForum(t)
	forum.HTML("GET /{$}", landingPage)
	forum.HTML("POST /login/login", loginPage)
	forum.HTML("GET /sam/latest_alpha/{$}", platformPage)
	forum.JSON("GET /sam/latest_alpha/latest_data.php", map[string]any{
		"status": "ok",
		"msg": map[string]any{
			"data": []map[string]any{
				{"thread_id": 100, "title": "First"},
				{"thread_id": 200, "title": "Second"},
				{"thread_id": 100, "title": "First"},
			},
			"pagination": map[string]any{"page": 1, "total": 1},
		},
	})
	forum.HTML("GET /threads/100/", handiworkPage("First", "1.0"))
	forum.HTML("GET /threads/200/", handiworkPage("Second", "0.2"))

	dir := t.TempDir()
	client, err := New(Options{
		Core: core.Options{
			BaseUrl:   forum.URL,
			Timeout:   time.Second * 5,
			CacheSize: 64,
			CacheTTL:  time.Minute,
		},
		SessionPath:       filepath.Join(dir, "session.json"),
		PlatformCachePath: filepath.Join(dir, "platform.json"),
		Time:              chrono.NewFrozenTime(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		Telemetry:         telemetry.NoopAPI{},
	})
	require.NoError(t, err)
	return &fixture{forum: forum, client: client, dir: dir}
}

func (f *fixture) login(t *testing.T) {
	result, err := f.client.Login(context.Background(), "user", "pass", nil)
	require.NoError(t, err)
	require.Equal(t, auth.AUTH_SUCCESSFUL, result.Code)
	require.True(t, f.client.IsLogged())
}

func TestNewRequiresSessionPath(t *testing.T) {
	_, err := New(Options{})
	require.ErrorIs(t, err, core.ErrParameter)
}

func TestRequireLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operations := map[string]func() error{
		"GetUserData": func() error {
			_, err := f.client.GetUserData(ctx)
			return err
		},
		"SearchHandiwork": func() error {
			_, err := f.client.SearchHandiwork(ctx, query.NewHandiworkSearchQuery(), 10)
			return err
		},
		"GetLatestUpdates": func() error {
			_, err := f.client.GetLatestUpdates(ctx, query.NewLatestSearchQuery(), 10)
			return err
		},
		"GetHandiworkFromURL": func() error {
			_, err := f.client.GetHandiworkFromURL(ctx, "/threads/100/")
			return err
		},
		"CheckIfHandiworkHasUpdate": func() error {
			_, err := f.client.CheckIfHandiworkHasUpdate(ctx, scrape.Handiwork{Thread: scrape.Thread{Url: "/threads/100/"}})
			return err
		},
		"CheckIfHandiworkHasUpdate without url": func() error {
			_, err := f.client.CheckIfHandiworkHasUpdate(ctx, scrape.Handiwork{})
			return err
		},
		"GetThread": func() error {
			_, err := f.client.GetThread(ctx, "/threads/100/")
			return err
		},
		"GetPost": func() error {
			_, err := f.client.GetPost(ctx, 1)
			return err
		},
		"GetUser": func() error {
			_, err := f.client.GetUser(ctx, 1)
			return err
		},
	}
	for name, operation := range operations {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, operation(), core.ErrUserNotLogged)
		})
	}
	require.Zero(t, f.forum.Requests())
}

func TestLoginLogout(t *testing.T) {
	f := newFixture(t)
	require.False(t, f.client.IsLogged())

	f.login(t)
	require.FileExists(t, filepath.Join(f.dir, "session.json"))

	require.NoError(t, f.client.Logout())
	require.False(t, f.client.IsLogged())
	require.NoFileExists(t, filepath.Join(f.dir, "session.json"))
}

func TestLoginFailureIsNotLogged(t *testing.T) {
	f := newFixtureWithLogin(t, wrongPasswordPage)

	result, err := f.client.Login(context.Background(), "user", "nope", nil)
	require.NoError(t, err)
	require.Equal(t, auth.INCORRECT_CREDENTIALS, result.Code)
	require.False(t, f.client.IsLogged())
	require.NoFileExists(t, filepath.Join(f.dir, "session.json"))
}

func TestGetLatestUpdates(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	handiworks, err := f.client.GetLatestUpdates(context.Background(), query.NewLatestSearchQuery(), 10)
	require.NoError(t, err)
	require.Len(t, handiworks, 2)

	require.Equal(t, "First", handiworks[0].Name)
	require.Equal(t, "1.0", handiworks[0].Version)
	require.Equal(t, "Ren'Py", handiworks[0].Engine)
	require.Equal(t, "Second", handiworks[1].Name)
	require.Equal(t, "0.2", handiworks[1].Version)
	require.NotNil(t, f.client.PlatformData())
}

func TestPlatformDataCache(t *testing.T) {
	f := newFixture(t)

	data, err := f.client.LoadPlatformData(context.Background())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(f.dir, "platform.json"))
	require.Equal(t, int64(1), f.forum.Requests())

	again, err := f.client.LoadPlatformData(context.Background())
	require.NoError(t, err)
	require.Same(t, data, again)
	require.Equal(t, int64(1), f.forum.Requests())

	other, err := New(Options{
		Core:              core.Options{BaseUrl: f.forum.URL},
		SessionPath:       filepath.Join(f.dir, "other-session.json"),
		PlatformCachePath: filepath.Join(f.dir, "platform.json"),
		Telemetry:         telemetry.NoopAPI{},
	})
	require.NoError(t, err)
	cached, err := other.LoadPlatformData(context.Background())
	require.NoError(t, err)
	require.Equal(t, data, cached)
	require.Equal(t, int64(1), f.forum.Requests())
}

func TestGetHandiworkFromURL(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	hw, err := f.client.GetHandiworkFromURL(ctx, f.forum.URL+"/threads/100/")
	require.NoError(t, err)
	require.Equal(t, "First", hw.Name)

	for _, link := range []string{"https://example.com/threads/100/", "/members/1/"} {
		_, err = f.client.GetHandiworkFromURL(ctx, link)
		require.ErrorIs(t, err, core.ErrParameter, link)
	}
}

func TestCheckIfHandiworkHasUpdate(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	current, err := f.client.GetHandiworkFromURL(ctx, "/threads/100/")
	require.NoError(t, err)

	updated, err := f.client.CheckIfHandiworkHasUpdate(ctx, current)
	require.NoError(t, err)
	require.False(t, updated)

	stale := current
	stale.Version = "0.9"
	updated, err = f.client.CheckIfHandiworkHasUpdate(ctx, stale)
	require.NoError(t, err)
	require.True(t, updated)

	_, err = f.client.CheckIfHandiworkHasUpdate(ctx, scrape.Handiwork{})
	require.ErrorIs(t, err, core.ErrParameter)
}

func TestHasUpdate(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	stored := scrape.Handiwork{Version: "1.0", LastThreadUpdate: day}

	cases := []struct {
		name     string
		live     scrape.Handiwork
		expected bool
	}{
		{"same", scrape.Handiwork{Version: "1.0", LastThreadUpdate: day}, false},
		{"version case", scrape.Handiwork{Version: " 1.0 ", LastThreadUpdate: day}, false},
		{"new version", scrape.Handiwork{Version: "1.1", LastThreadUpdate: day}, true},
		{"thread updated", scrape.Handiwork{Version: "1.0", LastThreadUpdate: day.Add(time.Hour * 24)}, true},
		{"older thread date", scrape.Handiwork{Version: "1.0", LastThreadUpdate: day.Add(-time.Hour)}, false},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, HasUpdate(stored, test.live))
		})
	}
}
