package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/telemetry"
)

// Forum is an in-process stand-in for the platform, handlers are registered
// on Mux with go 1.22 patterns ("GET /threads/{id}/").
type Forum struct {
	*httptest.Server
	Mux *http.ServeMux

	requests atomic.Int64
	lock     sync.Mutex
	paths    []string
}

func NewForum(t testing.TB) *Forum {
	t.Helper()
	forum := &Forum{Mux: http.NewServeMux()}
	forum.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forum.requests.Add(1)
		forum.lock.Lock()
		forum.paths = append(forum.paths, r.Method+" "+r.URL.Path)
		forum.lock.Unlock()
		forum.Mux.ServeHTTP(w, r)
	}))
	t.Cleanup(forum.Close)
	return forum
}

// Requests returns the amount of requests the forum has received.
func (f *Forum) Requests() int64 {
	return f.requests.Load()
}

// Paths returns "METHOD /path" for every request received, in order.
func (f *Forum) Paths() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.paths...)
}

// HTML registers a handler that always answers with `body`.
func (f *Forum) HTML(pattern, body string) {
	f.Mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		WriteHTML(w, body)
	})
}

// JSON registers a handler that always answers with `value` encoded as json.
func (f *Forum) JSON(pattern string, value any) {
	f.Mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, value)
	})
}

// Client returns a transport pointed at the forum without rate limiting or
// the cloudflare transport.
func (f *Forum) Client(t testing.TB, tel telemetry.API) *core.Client {
	t.Helper()
	if tel == nil {
		tel = telemetry.NoopAPI{}
	}
	client, err := core.NewClient(core.Options{
		BaseUrl:   f.URL,
		Timeout:   time.Second * 5,
		CacheSize: 64,
		CacheTTL:  time.Minute,
	}, tel)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func WriteHTML(w http.ResponseWriter, body string) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Write([]byte(body))
}

func WriteJSON(w http.ResponseWriter, value any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(value)
}
