package core

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// cookieJar is the jar installed on the resty client, it can be emptied
// while requests are in flight.
type cookieJar struct {
	lock  sync.Mutex
	inner *cookiejar.Jar
}

func newCookieJar() (*cookieJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &cookieJar{inner: inner}, nil
}

func (j *cookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.inner.SetCookies(u, cookies)
}

func (j *cookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.inner.Cookies(u)
}

// reset drops every cookie.
func (j *cookieJar) reset() error {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.lock.Lock()
	defer j.lock.Unlock()
	j.inner = inner
	return nil
}
