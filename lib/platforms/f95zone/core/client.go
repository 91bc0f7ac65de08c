// client.go contains the http plumbing shared by every f95zone scraper, it holds
// the cookie jar that carries the login and the cache of fetched pages.

package core

import (
	"net/http"
	"net/url"
	"time"

	"f95api/internal/assert"
	"f95api/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch       = "client.fetch"
	report_client_fetch_token = "client.fetch-token"
	report_client_cookies     = "client.cookies"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	BaseUrl string
	Timeout time.Duration
	// RateLimit is the maximum amount of requests per second, 0 disables limiting.
	RateLimit float64
	// CacheSize is the amount of GET responses kept in memory, 0 disables the cache.
	CacheSize int
	CacheTTL  time.Duration
	// CloudflareBypass wraps the transport so that requests look like they come from a browser.
	CloudflareBypass bool
	UserAgent        string
}

func DefaultOptions() Options {
	return Options{
		BaseUrl:          DefaultBaseUrl,
		Timeout:          time.Second * 30,
		RateLimit:        2,
		CacheSize:        256,
		CacheTTL:         time.Minute * 5,
		CloudflareBypass: true,
		UserAgent:        defaultUserAgent,
	}
}

// Client is the authenticated transport every request to the platform goes through.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	jar   *cookieJar
	cache *pageCache
	tel   telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NonNegative(opts.RateLimit, "rate limit")
	assert.NonNegative(opts.CacheSize, "cache size")

	tel = telemetry.NewScopedAPI("f95zone_core", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, Wrap(PARAMETER_ERROR, err, "parse base url")
	}
	jar, err := newCookieJar()
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RateLimit > 0 {
		// max burst >= 1 just means that no requests will be dropped
		burst := max(int(opts.RateLimit), 1)
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		jar:     jar,
		cache:   newPageCache(opts.CacheSize, opts.CacheTTL),
		tel:     tel,
	}, nil
}

// Cookies returns the cookies the jar would send to the platform.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.BaseUrl)
}

// SetCookies puts previously saved cookies back into the jar.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.BaseUrl, cookies)
}

// ResetCookies empties the jar and drops every cached page, the cached pages
// were rendered for the previous cookies. It is safe to call while other
// requests are in flight.
func (c *Client) ResetCookies() {
	err := c.jar.reset()
	if err != nil {
		// cookiejar.New only fails with a broken PublicSuffixList, nil is passed
		c.tel.ReportBroken(report_client_cookies, err)
		return
	}
	c.cache.purge()
}

// InvalidateCache drops every cached page.
func (c *Client) InvalidateCache() {
	c.cache.purge()
}

// Url resolves an endpoint (absolute or relative to the base url) into an absolute url.
func (c *Client) Url(endpoint string) (*url.URL, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, Wrap(PARAMETER_ERROR, err, "parse endpoint %q", endpoint)
	}
	return c.BaseUrl.ResolveReference(ref), nil
}

// IsPlatformUrl returns true if `link` points to the same host as the base url.
func (c *Client) IsPlatformUrl(link *url.URL) bool {
	return link != nil && link.Hostname() == c.BaseUrl.Hostname()
}
