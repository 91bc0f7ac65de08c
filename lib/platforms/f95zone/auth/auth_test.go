package auth

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/session"
	"f95api/lib/telemetry"
	"f95api/lib/testutil"

	"github.com/stretchr/testify/require"
)

const (
	landingPage = `<html data-logged-in="false"><body>
		<form action="/login/login"><input type="hidden" name="_xfToken" value="login-token"></form>
	</body></html>`
	loggedInPage = `<html data-logged-in="true"><body><a class="p-navgroup-link--user">user</a></body></html>`
	wrongPasswordPage = `<html data-logged-in="false"><body>
		<div class="blockMessage blockMessage--error">Incorrect password. Please try again.</div>
	</body></html>`
	unknownUserPage = `<html data-logged-in="false"><body>
		<div class="blockMessage blockMessage--error">The requested user 'nobody' could not be found.</div>
	</body></html>`
	twoStepPage = `<html data-logged-in="false"><body>
		<form action="/login/two-step" method="post">
			<input type="text" name="code">
			<input type="hidden" name="_xfToken" value="two-step-token">
		</form>
	</body></html>`
)

var epoch = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	forum   *testutil.Forum
	client  *core.Client
	session *session.Session
	clock   *chrono.FrozenTime
	auth    *Authenticator
}

// newFixture plays a forum with three accounts: "user" (no second factor),
// "secure" (second factor, code 123456) and anything else (unknown user).
// Every password except "pass" is wrong.
func newFixture(t *testing.T, opts Options) *fixture {
	forum := testutil.NewForum(t)
	forum.HTML("GET /{$}", landingPage)
	forum.Mux.HandleFunc("POST /login/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "login-token", r.PostForm.Get("_xfToken"))

		switch {
		case r.PostForm.Get("login") != "user" && r.PostForm.Get("login") != "secure":
			testutil.WriteHTML(w, unknownUserPage)
		case r.PostForm.Get("password") != "pass":
			testutil.WriteHTML(w, wrongPasswordPage)
		case r.PostForm.Get("login") == "secure":
			http.Redirect(w, r, "/login/two-step?remember=1", http.StatusSeeOther)
		default:
			http.SetCookie(w, &http.Cookie{Name: "xf_user", Value: "1,user", Path: "/"})
			testutil.WriteHTML(w, loggedInPage)
		}
	})
	forum.HTML("GET /login/two-step", twoStepPage)
	forum.Mux.HandleFunc("POST /login/two-step", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "two-step-token", r.PostForm.Get("_xfToken"))
		require.Equal(t, "json", r.PostForm.Get("_xfResponseType"))

		if r.PostForm.Get("code") != "123456" {
			w.Header().Set("content-type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":"error","errors":["The two-step verification value could not be confirmed. Please try again."]}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "xf_user", Value: "2,secure", Path: "/"})
		testutil.WriteJSON(w, map[string]any{"status": "ok"})
	})

	clock := chrono.NewFrozenTime(epoch)
	client := forum.Client(t, nil)
	sess := session.New(filepath.Join(t.TempDir(), "session.json"), session.Options{Time: clock})
	return &fixture{
		forum:   forum,
		client:  client,
		session: sess,
		clock:   clock,
		auth:    NewAuthenticator(client, sess, opts, telemetry.NoopAPI{}),
	}
}

func staticCode(code string) OTPProvider {
	return func(context.Context) (string, error) {
		return code, nil
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t, Options{})

	result, err := f.auth.Login(context.Background(), "user", "pass", nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, AUTH_SUCCESSFUL, result.Code)
	require.Equal(t, STATE_AUTHENTICATED, f.auth.State())
	require.Equal(t, []string{"GET /", "POST /login/login"}, f.forum.Paths())

	stored := session.New(f.session.Path, session.Options{Time: f.clock})
	require.NoError(t, stored.Load())
	require.True(t, stored.IsValid("user", "pass"))
	require.Equal(t, "login-token", stored.Token)
	require.NotEmpty(t, stored.Cookies)
}

func TestLoginReusesValidSession(t *testing.T) {
	f := newFixture(t, Options{})

	f.session.Create("user", "pass", "old-token")
	f.session.Cookies = []*http.Cookie{{Name: "xf_user", Value: "1,user"}}
	require.NoError(t, f.session.Save())
	f.clock.Advance(time.Hour * 23)

	result, err := f.auth.Login(context.Background(), "user", "pass", nil)
	require.NoError(t, err)
	require.Equal(t, LoginResult{Success: true, Code: ALREADY_AUTHENTICATED, Message: "reused session"}, result)
	require.Zero(t, f.forum.Requests())

	cookies := f.client.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "1,user", cookies[0].Value)
}

func TestLoginExpiredSession(t *testing.T) {
	f := newFixture(t, Options{})

	f.session.Create("user", "pass", "old-token")
	require.NoError(t, f.session.Save())
	f.clock.Advance(session.DefaultLifetime)

	result, err := f.auth.Login(context.Background(), "user", "pass", nil)
	require.NoError(t, err)
	require.Equal(t, AUTH_SUCCESSFUL, result.Code)
	require.Equal(t, []string{"GET /", "POST /login/login"}, f.forum.Paths())

	stored := session.New(f.session.Path, session.Options{Time: f.clock})
	require.NoError(t, stored.Load())
	require.True(t, stored.Created.Equal(f.clock.Now()))
}

func TestLoginOtherCredentialsSession(t *testing.T) {
	f := newFixture(t, Options{})

	f.session.Create("someone-else", "pass", "old-token")
	require.NoError(t, f.session.Save())

	result, err := f.auth.Login(context.Background(), "user", "pass", nil)
	require.NoError(t, err)
	require.Equal(t, AUTH_SUCCESSFUL, result.Code)
	require.NotZero(t, f.forum.Requests())
}

func TestLoginIncorrectCredentials(t *testing.T) {
	table := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "user", password: "nope"},
		{name: "unknown user", username: "nobody", password: "pass"},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			result, err := f.auth.Login(context.Background(), row.username, row.password, nil)
			require.NoError(t, err)
			require.False(t, result.Success)
			require.Equal(t, INCORRECT_CREDENTIALS, result.Code)
			require.Equal(t, STATE_FAILED, f.auth.State())

			_, err = os.Stat(f.session.Path)
			require.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestLoginTwoFactor(t *testing.T) {
	f := newFixture(t, Options{TrustedDevice: true})

	result, err := f.auth.Login(context.Background(), "secure", "pass", staticCode(" 123456\n"))
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, AUTH_SUCCESSFUL_2FA, result.Code)
	require.Equal(t, STATE_AUTHENTICATED, f.auth.State())
	require.Equal(t, []string{
		"GET /",
		"POST /login/login",
		"GET /login/two-step",
		"POST /login/two-step",
	}, f.forum.Paths())

	stored := session.New(f.session.Path, session.Options{Time: f.clock})
	require.NoError(t, stored.Load())
	require.True(t, stored.IsValid("secure", "pass"))
}

func TestLoginTwoFactorIncorrectCode(t *testing.T) {
	f := newFixture(t, Options{})

	result, err := f.auth.Login(context.Background(), "secure", "pass", staticCode("000000"))
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, INCORRECT_2FA_CODE, result.Code)
	require.Equal(t, STATE_FAILED, f.auth.State())
}

func TestLoginTwoFactorNonNumeric(t *testing.T) {
	f := newFixture(t, Options{})

	result, err := f.auth.Login(context.Background(), "secure", "pass", staticCode("12a456"))
	require.ErrorIs(t, err, core.ErrParameter)
	require.False(t, result.Success)
	require.Equal(t, INCORRECT_2FA_CODE, result.Code)
	require.Equal(t, STATE_FAILED, f.auth.State())
	require.NotContains(t, f.forum.Paths(), "POST /login/two-step")
}

func TestLoginTwoFactorWithoutProvider(t *testing.T) {
	f := newFixture(t, Options{})

	result, err := f.auth.Login(context.Background(), "secure", "pass", nil)
	require.ErrorIs(t, err, core.ErrUserNotLogged)
	require.False(t, result.Success)
	require.Equal(t, REQUIRE_2FA, result.Code)
	require.NotContains(t, f.forum.Paths(), "POST /login/two-step")
}

func TestLoginTwoFactorTimeout(t *testing.T) {
	f := newFixture(t, Options{TwoFactorTimeout: time.Millisecond * 20})

	blocking := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	result, err := f.auth.Login(context.Background(), "secure", "pass", blocking)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, result.Success)
	require.Equal(t, STATE_FAILED, f.auth.State())
	require.NotContains(t, f.forum.Paths(), "POST /login/two-step")
}

func TestSend2FACodeRejectsNonNumeric(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.auth.Send2FACode(context.Background(), "12a456", "two-step-token")
	require.ErrorIs(t, err, core.ErrParameter)
	require.Zero(t, f.forum.Requests())
}

func TestLoginTransportError(t *testing.T) {
	forum := testutil.NewForum(t)
	forum.Mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client := forum.Client(t, nil)
	sess := session.New(filepath.Join(t.TempDir(), "session.json"), session.Options{})
	auth := NewAuthenticator(client, sess, Options{}, telemetry.NoopAPI{})

	result, err := auth.Login(context.Background(), "user", "pass", nil)
	require.ErrorIs(t, err, core.ErrTransport)
	require.False(t, result.Success)
	require.Equal(t, UNKNOWN_ERROR, result.Code)
}

func TestLoginMalformedSession(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, os.WriteFile(f.session.Path, []byte(`{"hash":`), 0600))

	result, err := f.auth.Login(context.Background(), "user", "pass", nil)
	require.ErrorIs(t, err, core.ErrParse)
	require.Equal(t, UNKNOWN_ERROR, result.Code)
	require.Zero(t, f.forum.Requests())
}

func TestLogout(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.auth.Login(context.Background(), "user", "pass", nil)
	require.NoError(t, err)
	require.NotEmpty(t, f.client.Cookies())

	require.NoError(t, f.auth.Logout())
	require.Empty(t, f.client.Cookies())
	require.Equal(t, STATE_ANONYMOUS, f.auth.State())
	_, err = os.Stat(f.session.Path)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, f.auth.Logout())
}
