package f95zone

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/auth"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/paginate"
	"f95api/lib/platforms/f95zone/platform"
	"f95api/lib/platforms/f95zone/query"
	"f95api/lib/platforms/f95zone/scrape"
	"f95api/lib/platforms/f95zone/session"
	"f95api/lib/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("f95zone")

const (
	report_client_login         = "client.login"
	report_client_platform_save = "client.platform-save"
	report_client_handiwork     = "client.handiwork"
)

// DefaultConcurrency is the amount of threads fetched at the same time when
// a search resolves its results.
const DefaultConcurrency = 4

type Options struct {
	Core core.Options
	// SessionPath is where the login is persisted, it is required.
	SessionPath     string
	SessionLifetime time.Duration
	// PlatformCachePath is where the platform data is cached, empty means
	// the data is fetched on every run.
	PlatformCachePath string

	TwoFactorTimeout time.Duration
	TrustedDevice    bool

	// MaxPages bounds every paginated collection, it defaults to
	// paginate.DefaultMaxPages.
	MaxPages int
	// Concurrency defaults to DefaultConcurrency.
	Concurrency int

	// Time defaults to chrono.StandardTime.
	Time chrono.TimeAPI
	// Telemetry defaults to telemetry.SlogAPI.
	Telemetry telemetry.API
}

// Client holds everything a logged in user of the platform needs: the
// transport (cookies and cache), the session, the logged in flag and the
// platform data. Several clients can be used in the same process.
type Client struct {
	http *core.Client
	auth *auth.Authenticator
	opts Options
	tel  telemetry.API

	loginLock    sync.Mutex
	platformLock sync.Mutex

	lock     sync.RWMutex
	logged   bool
	platform *platform.Data
}

func New(opts Options) (*Client, error) {
	if opts.SessionPath == "" {
		return nil, core.Errorf(core.PARAMETER_ERROR, "a session path is required")
	}
	if opts.Time == nil {
		opts.Time = chrono.NewStandardTime()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.SlogAPI{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	tel := telemetry.NewScopedAPI("f95zone", opts.Telemetry)

	transport, err := core.NewClient(opts.Core, tel)
	if err != nil {
		return nil, err
	}
	sess := session.New(opts.SessionPath, session.Options{
		Lifetime: opts.SessionLifetime,
		Time:     opts.Time,
	})
	authenticator := auth.NewAuthenticator(transport, sess, auth.Options{
		TwoFactorTimeout: opts.TwoFactorTimeout,
		TrustedDevice:    opts.TrustedDevice,
	}, tel)

	return &Client{
		http: transport,
		auth: authenticator,
		opts: opts,
		tel:  tel,
	}, nil
}

// Transport exposes the underlying http client.
func (c *Client) Transport() *core.Client {
	return c.http
}

// Login authenticates the user, reusing the persisted session when it is
// still valid for the same credentials. `otp` may be nil for accounts
// without a second factor.
func (c *Client) Login(ctx context.Context, username, password string, otp auth.OTPProvider) (auth.LoginResult, error) {
	c.loginLock.Lock()
	defer c.loginLock.Unlock()

	result, err := c.auth.Login(ctx, username, password, otp)

	c.lock.Lock()
	c.logged = err == nil && result.Success
	c.lock.Unlock()

	if err != nil {
		c.tel.ReportWarning(report_client_login, err)
	}
	return result, err
}

func (c *Client) IsLogged() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.logged
}

// Logout clears the cookies and the persisted session.
func (c *Client) Logout() error {
	c.loginLock.Lock()
	defer c.loginLock.Unlock()

	c.lock.Lock()
	c.logged = false
	c.lock.Unlock()
	return c.auth.Logout()
}

func (c *Client) requireLogin() error {
	if !c.IsLogged() {
		return core.Errorf(core.USER_NOT_LOGGED, "login is required")
	}
	return nil
}

// PlatformData returns the loaded platform data, nil before LoadPlatformData.
func (c *Client) PlatformData() *platform.Data {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.platform
}

// LoadPlatformData reads the platform data from the cache file, or fetches
// it and writes the cache when the file is missing or unreadable. The data
// is loaded once per client.
func (c *Client) LoadPlatformData(ctx context.Context) (*platform.Data, error) {
	data := c.PlatformData()
	if data != nil {
		return data, nil
	}

	c.platformLock.Lock()
	defer c.platformLock.Unlock()
	data = c.PlatformData()
	if data != nil {
		return data, nil
	}

	if c.opts.PlatformCachePath != "" {
		cached, err := platform.Load(c.opts.PlatformCachePath)
		if err == nil && !cached.IsEmpty() {
			c.setPlatformData(cached)
			return cached, nil
		}
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			c.tel.ReportWarning(report_client_platform_save, err)
		}
	}

	fetched, err := platform.Fetch(ctx, c.http)
	if err != nil {
		return nil, err
	}
	if c.opts.PlatformCachePath != "" {
		err = fetched.Save(c.opts.PlatformCachePath)
		if err != nil {
			c.tel.ReportBroken(report_client_platform_save, err)
		}
	}
	c.setPlatformData(fetched)
	return fetched, nil
}

func (c *Client) setPlatformData(data *platform.Data) {
	c.lock.Lock()
	c.platform = data
	c.lock.Unlock()
}

func (c *Client) env(ctx context.Context) (query.Env, error) {
	data, err := c.LoadPlatformData(ctx)
	if err != nil {
		return query.Env{}, fmt.Errorf("load platform data: %w", err)
	}
	return query.Env{Platform: data, Time: c.opts.Time}, nil
}

func (c *Client) collectOptions(limit int) paginate.Options {
	return paginate.Options{
		Limit:     limit,
		MaxPages:  c.opts.MaxPages,
		Telemetry: c.tel,
	}
}

// GetUserData returns the profile of the logged in user.
func (c *Client) GetUserData(ctx context.Context) (scrape.UserProfile, error) {
	err := c.requireLogin()
	if err != nil {
		return scrape.UserProfile{}, err
	}
	return scrape.FetchProfile(ctx, c.http, scrape.ProfileOptions{
		MaxPages:  c.opts.MaxPages,
		Telemetry: c.tel,
	})
}

// SearchHandiwork returns up to `limit` handiworks matching `q`, in the
// order of the search results.
func (c *Client) SearchHandiwork(ctx context.Context, q query.HandiworkSearchQuery, limit int) ([]scrape.Handiwork, error) {
	ctx, span := tracer.Start(ctx, "client:SearchHandiwork")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	err := c.requireLogin()
	if err != nil {
		return nil, err
	}
	env, err := c.env(ctx)
	if err != nil {
		return nil, err
	}
	urls, err := paginate.HandiworkURLs(ctx, c.http, q, env, c.collectOptions(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to search handiworks")
		return nil, err
	}
	return c.fetchHandiworks(ctx, urls)
}

// GetLatestUpdates returns up to `limit` handiworks of the latest updates
// catalog.
func (c *Client) GetLatestUpdates(ctx context.Context, q query.LatestSearchQuery, limit int) ([]scrape.Handiwork, error) {
	ctx, span := tracer.Start(ctx, "client:GetLatestUpdates")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	err := c.requireLogin()
	if err != nil {
		return nil, err
	}
	err = q.Validate()
	if err != nil {
		return nil, err
	}
	env, err := c.env(ctx)
	if err != nil {
		return nil, err
	}
	opts := c.collectOptions(limit)
	opts.Start = q.Page
	urls, err := paginate.Collect(ctx, opts, paginate.Dedupe(paginate.LatestURLs(c.http, q, env)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to collect latest updates")
		return nil, err
	}
	return c.fetchHandiworks(ctx, urls)
}

// fetchHandiworks fetches every url concurrently, the result keeps the
// order of `urls`.
func (c *Client) fetchHandiworks(ctx context.Context, urls []string) ([]scrape.Handiwork, error) {
	data := c.PlatformData()
	out := make([]scrape.Handiwork, len(urls))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.opts.Concurrency)
	for i, link := range urls {
		i, link := i, link
		group.Go(func() error {
			hw, err := scrape.FetchHandiwork(groupCtx, c.http, data, c.tel, link)
			if err != nil {
				c.tel.ReportBroken(report_client_handiwork, err, link)
				return err
			}
			out[i] = hw
			return nil
		})
	}
	err := group.Wait()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkThreadUrl makes sure `link` is a thread of the platform.
func (c *Client) checkThreadUrl(link string) (string, error) {
	parsed, err := c.http.Url(link)
	if err != nil {
		return "", err
	}
	if !c.http.IsPlatformUrl(parsed) || !strings.Contains(parsed.Path, core.PathThreads) {
		return "", core.Errorf(core.PARAMETER_ERROR, "%q is not a thread of the platform", link)
	}
	return parsed.String(), nil
}

func (c *Client) GetHandiworkFromURL(ctx context.Context, link string) (scrape.Handiwork, error) {
	err := c.requireLogin()
	if err != nil {
		return scrape.Handiwork{}, err
	}
	link, err = c.checkThreadUrl(link)
	if err != nil {
		return scrape.Handiwork{}, err
	}
	data, err := c.LoadPlatformData(ctx)
	if err != nil {
		return scrape.Handiwork{}, fmt.Errorf("load platform data: %w", err)
	}
	return scrape.FetchHandiwork(ctx, c.http, data, c.tel, link)
}

// CheckIfHandiworkHasUpdate fetches the live thread of `hw` and compares its
// version and thread update date with the given ones.
func (c *Client) CheckIfHandiworkHasUpdate(ctx context.Context, hw scrape.Handiwork) (bool, error) {
	err := c.requireLogin()
	if err != nil {
		return false, err
	}
	if hw.Url == "" {
		return false, core.Errorf(core.PARAMETER_ERROR, "handiwork has no url")
	}
	live, err := c.GetHandiworkFromURL(ctx, hw.Url)
	if err != nil {
		return false, err
	}
	return HasUpdate(hw, live), nil
}

// HasUpdate compares a stored handiwork with its live version.
func HasUpdate(stored, live scrape.Handiwork) bool {
	if !strings.EqualFold(strings.TrimSpace(stored.Version), strings.TrimSpace(live.Version)) {
		return true
	}
	return live.LastThreadUpdate.After(stored.LastThreadUpdate)
}

func (c *Client) GetThread(ctx context.Context, link string) (scrape.Thread, error) {
	err := c.requireLogin()
	if err != nil {
		return scrape.Thread{}, err
	}
	link, err = c.checkThreadUrl(link)
	if err != nil {
		return scrape.Thread{}, err
	}
	thread, _, err := scrape.FetchThread(ctx, c.http, c.tel, link)
	return thread, err
}

// GetPosts returns up to `limit` posts of `thread`, every post when limit
// is 0.
func (c *Client) GetPosts(ctx context.Context, thread scrape.Thread, limit int) ([]scrape.Post, error) {
	err := c.requireLogin()
	if err != nil {
		return nil, err
	}
	return scrape.Posts(ctx, c.http, thread, scrape.PostsOptions{
		Limit:     limit,
		MaxPages:  c.opts.MaxPages,
		Telemetry: c.tel,
	})
}

func (c *Client) GetPost(ctx context.Context, id int) (scrape.Post, error) {
	err := c.requireLogin()
	if err != nil {
		return scrape.Post{}, err
	}
	return scrape.FetchPost(ctx, c.http, id)
}

func (c *Client) GetUser(ctx context.Context, id int) (scrape.PlatformUser, error) {
	err := c.requireLogin()
	if err != nil {
		return scrape.PlatformUser{}, err
	}
	return scrape.FetchUser(ctx, c.http, id)
}
