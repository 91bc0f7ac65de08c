package auth

import (
	"context"
	"fmt"
	"time"

	"f95api/internal/assert"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/session"
	"f95api/lib/telemetry"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("f95zone/auth")

const (
	report_auth_login   = "auth.login"
	report_auth_session = "auth.session"
	report_auth_2fa     = "auth.two-factor"
)

// DefaultTwoFactorTimeout bounds the wait on an OTPProvider.
const DefaultTwoFactorTimeout = time.Minute * 2

type LoginCode int

const (
	REQUIRE_2FA LoginCode = iota
	AUTH_SUCCESSFUL
	AUTH_SUCCESSFUL_2FA
	ALREADY_AUTHENTICATED
	UNKNOWN_ERROR
	INCORRECT_CREDENTIALS
	INCORRECT_2FA_CODE
)

func (c LoginCode) String() string {
	switch c {
	case REQUIRE_2FA:
		return "REQUIRE_2FA"
	case AUTH_SUCCESSFUL:
		return "AUTH_SUCCESSFUL"
	case AUTH_SUCCESSFUL_2FA:
		return "AUTH_SUCCESSFUL_2FA"
	case ALREADY_AUTHENTICATED:
		return "ALREADY_AUTHENTICATED"
	case UNKNOWN_ERROR:
		return "UNKNOWN_ERROR"
	case INCORRECT_CREDENTIALS:
		return "INCORRECT_CREDENTIALS"
	case INCORRECT_2FA_CODE:
		return "INCORRECT_2FA_CODE"
	}
	return fmt.Sprintf("LoginCode(%d)", int(c))
}

type LoginResult struct {
	Success bool
	Code    LoginCode
	Message string
}

type State int

const (
	STATE_ANONYMOUS State = iota
	STATE_TOKEN_FETCHED
	STATE_AWAITING_2FA
	STATE_AUTHENTICATED
	STATE_FAILED
)

func (s State) String() string {
	switch s {
	case STATE_ANONYMOUS:
		return "anonymous"
	case STATE_TOKEN_FETCHED:
		return "token fetched"
	case STATE_AWAITING_2FA:
		return "awaiting 2fa"
	case STATE_AUTHENTICATED:
		return "authenticated"
	case STATE_FAILED:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Credentials are only valid for a single login attempt, the token is
// fetched again on every attempt.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// OTPProvider returns the current code of the account's authenticator app.
// It is called at most once per login and is cancelled through `ctx` when
// the two-factor timeout expires.
type OTPProvider func(ctx context.Context) (string, error)

type Options struct {
	// TwoFactorTimeout defaults to DefaultTwoFactorTimeout.
	TwoFactorTimeout time.Duration
	// TrustedDevice asks the platform to skip the second factor on this
	// device for the next logins.
	TrustedDevice bool
}

// Authenticator drives the login of a single account, it is not safe to
// call Login concurrently on the same Authenticator.
type Authenticator struct {
	client  *core.Client
	session *session.Session
	opts    Options
	tel     telemetry.API
	state   State
}

func NewAuthenticator(client *core.Client, sess *session.Session, opts Options, tel telemetry.API) *Authenticator {
	assert.NotNil(client)
	assert.NotNil(sess)
	assert.NotNil(tel)
	if opts.TwoFactorTimeout <= 0 {
		opts.TwoFactorTimeout = DefaultTwoFactorTimeout
	}
	return &Authenticator{
		client:  client,
		session: sess,
		opts:    opts,
		tel:     telemetry.NewScopedAPI("f95zone_auth", tel),
	}
}

func (a *Authenticator) State() State {
	return a.state
}

func (a *Authenticator) Session() *session.Session {
	return a.session
}

func (a *Authenticator) setState(state State) {
	if a.state != state {
		a.tel.ReportDebug("state", a.state.String(), "->", state.String())
	}
	a.state = state
}

// Logout forgets the cookies and removes the session file.
func (a *Authenticator) Logout() error {
	a.client.ResetCookies()
	a.setState(STATE_ANONYMOUS)
	err := a.session.Delete()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
