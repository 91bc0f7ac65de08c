package session

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"f95api/internal/assert"
	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/core"
)

// DefaultLifetime is how long a session is trusted after it was created.
const DefaultLifetime = time.Hour * 24

type Options struct {
	// Lifetime defaults to DefaultLifetime.
	Lifetime time.Duration
	// Time defaults to chrono.StandardTime.
	Time chrono.TimeAPI
}

// Session is a login persisted to disk, it is keyed by a hash of the
// credentials that created it.
type Session struct {
	Path    string
	Created time.Time
	Hash    string
	Token   string
	Cookies []*http.Cookie

	lifetime time.Duration
	time     chrono.TimeAPI
}

func New(path string, opts Options) *Session {
	assert.NotEmptyStr(path)
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}
	if opts.Time == nil {
		opts.Time = chrono.NewStandardTime()
	}
	return &Session{
		Path:     path,
		lifetime: opts.Lifetime,
		time:     opts.Time,
	}
}

// HashCredentials is the one-way hash stored in place of the credentials.
func HashCredentials(username, password string) string {
	sum := md5.Sum([]byte(username + password))
	return hex.EncodeToString(sum[:])
}

// Create fills the session in memory, it does not write to disk.
func (s *Session) Create(username, password, token string) {
	s.Created = s.time.Now().UTC().Truncate(time.Second)
	s.Hash = HashCredentials(username, password)
	s.Token = token
	s.Cookies = nil
}

// Age is the time elapsed since the session was created.
func (s *Session) Age() time.Duration {
	return s.time.Now().Sub(s.Created)
}

// IsValid returns true if the session is younger than its lifetime and was
// created with the given credentials.
func (s *Session) IsValid(username, password string) bool {
	if s.Created.IsZero() || s.Hash == "" {
		return false
	}
	if s.Age() >= s.lifetime {
		return false
	}
	return s.Hash == HashCredentials(username, password)
}

type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

type storedSession struct {
	Created time.Time      `json:"created"`
	Hash    string         `json:"hash"`
	Token   string         `json:"token,omitempty"`
	Cookies []storedCookie `json:"cookies,omitempty"`
}

var hashRegex = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Save writes the session to its path, replacing whatever was there.
func (s *Session) Save() error {
	stored := storedSession{
		Created: s.Created,
		Hash:    s.Hash,
		Token:   s.Token,
	}
	for _, c := range s.Cookies {
		stored.Cookies = append(stored.Cookies, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}

	serialized, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(s.Path), 0700)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, serialized, 0600)
}

// Load replaces the in-memory fields with the ones on disk.
//
// A missing file fails with NOT_FOUND (which also matches os.ErrNotExist), a
// file without a creation date or a well formed hash fails with PARSE_ERROR.
func (s *Session) Load() error {
	contents, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Wrap(core.NOT_FOUND, err, "session file")
	}
	if err != nil {
		return err
	}

	var stored storedSession
	err = json.Unmarshal(contents, &stored)
	if err != nil {
		return core.Wrap(core.PARSE_ERROR, err, "session file %s", s.Path)
	}
	if stored.Created.IsZero() {
		return core.Errorf(core.PARSE_ERROR, "session file %s: missing created", s.Path)
	}
	if !hashRegex.MatchString(stored.Hash) {
		return core.Errorf(core.PARSE_ERROR, "session file %s: missing or malformed hash", s.Path)
	}

	s.Created = stored.Created
	s.Hash = stored.Hash
	s.Token = stored.Token
	s.Cookies = nil
	for _, c := range stored.Cookies {
		s.Cookies = append(s.Cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return nil
}

// Delete removes the session file, a missing file is not an error.
func (s *Session) Delete() error {
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
