package core

import (
	"bytes"
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a response body together with the url it was served from after redirects.
type Page struct {
	Url         *url.URL
	StatusCode  int
	ContentType string
	Body        []byte
}

func (p Page) mediaType() string {
	mediaType, _, err := mime.ParseMediaType(p.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(p.ContentType))
	}
	return mediaType
}

func (p Page) IsHTML() bool {
	return p.mediaType() == "text/html"
}

func (p Page) IsJSON() bool {
	mediaType := p.mediaType()
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Document parses the body as html, failing with UNEXPECTED_CONTENT_TYPE
// when the server answered with something else.
func (p Page) Document() (*goquery.Document, error) {
	if !p.IsHTML() {
		return nil, Errorf(UNEXPECTED_CONTENT_TYPE, "expected html from %s, got %q", p.Url, p.ContentType)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(p.Body))
	if err != nil {
		return nil, Wrap(PARSE_ERROR, err, "parse html from %s", p.Url)
	}
	doc.Url = p.Url
	return doc, nil
}

// JSON decodes the body into `out`, failing with UNEXPECTED_CONTENT_TYPE
// when the server answered with something else.
func (p Page) JSON(out any) error {
	if !p.IsJSON() {
		return Errorf(UNEXPECTED_CONTENT_TYPE, "expected json from %s, got %q", p.Url, p.ContentType)
	}
	err := json.Unmarshal(p.Body, out)
	if err != nil {
		return Wrap(PARSE_ERROR, err, "decode json from %s", p.Url)
	}
	return nil
}

// Get fetches an endpoint, responses are served from the cache when possible.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (Page, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil, true)
}

// GetFresh fetches an endpoint bypassing the cache.
func (c *Client) GetFresh(ctx context.Context, endpoint string, params url.Values) (Page, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil, false)
}

// PostForm submits an urlencoded form, posts are never cached.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values) (Page, error) {
	return c.do(ctx, http.MethodPost, endpoint, nil, form, false)
}

// GetHTML is Get followed by Page.Document.
func (c *Client) GetHTML(ctx context.Context, endpoint string, params url.Values) (*goquery.Document, error) {
	page, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return page.Document()
}

// GetJSON is Get followed by Page.JSON.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	page, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	return page.JSON(out)
}

// Do sends a request with an arbitrary method, GET requests go through the cache.
func (c *Client) Do(ctx context.Context, method, endpoint string, params, form url.Values) (Page, error) {
	return c.do(ctx, method, endpoint, params, form, method == http.MethodGet)
}

func (c *Client) target(endpoint string, params url.Values) (*url.URL, error) {
	target, err := c.Url(endpoint)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		query := target.Query()
		for key, values := range params {
			for _, v := range values {
				query.Add(key, v)
			}
		}
		target.RawQuery = query.Encode()
	}
	return target, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, params, form url.Values, useCache bool) (Page, error) {
	target, err := c.target(endpoint, params)
	if err != nil {
		return Page{}, err
	}
	key := method + " " + target.String()

	if useCache {
		page, ok := c.cache.get(key)
		if ok {
			c.tel.ReportDebug("cache hit", key)
			return page, nil
		}
	}

	req := c.Http.R().SetContext(ctx)
	if form != nil {
		req.SetFormDataFromValues(form)
	}
	res, err := req.Execute(method, target.String())
	if err != nil {
		return Page{}, Wrap(TRANSPORT_ERROR, err, "%s %s", method, target.Path)
	}

	finalUrl := target
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		finalUrl = res.RawResponse.Request.URL
	}
	page := Page{
		Url:         finalUrl,
		StatusCode:  res.StatusCode(),
		ContentType: res.Header().Get("content-type"),
		Body:        res.Body(),
	}

	switch {
	case res.StatusCode() == http.StatusNotFound:
		return page, Errorf(NOT_FOUND, "%s %s", method, target.Path)
	case res.IsError():
		c.tel.ReportWarning(report_client_fetch, method, target.String(), res.Status())
		return page, Errorf(TRANSPORT_ERROR, "%s %s: unexpected status %s", method, target.Path, res.Status())
	}

	if useCache {
		c.cache.add(key, page)
	}
	return page, nil
}
