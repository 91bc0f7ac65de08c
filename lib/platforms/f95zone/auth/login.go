package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"f95api/lib/htmlutil"
	"f95api/lib/platforms/f95zone/core"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Login authenticates the account, reusing the persisted session when it is
// still valid for the same credentials.
//
// Rejected credentials or codes are reported through LoginResult with a nil
// error. A missing OTPProvider when the account requires a second factor
// fails with USER_NOT_LOGGED, transport and parse failures are returned as
// UNKNOWN_ERROR together with the underlying error.
func (a *Authenticator) Login(ctx context.Context, username, password string, otp OTPProvider) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth:Login")
	defer span.End()

	a.setState(STATE_ANONYMOUS)

	err := a.session.Load()
	switch {
	case err == nil && a.session.IsValid(username, password):
		a.client.SetCookies(a.session.Cookies)
		a.setState(STATE_AUTHENTICATED)
		return LoginResult{
			Success: true,
			Code:    ALREADY_AUTHENTICATED,
			Message: "reused session",
		}, nil
	case err == nil:
		a.tel.ReportDebug("session expired or created with other credentials", a.session.Path)
		err = a.session.Delete()
		if err != nil {
			a.tel.ReportWarning(report_auth_session, err)
		}
	case errors.Is(err, core.ErrNotFound):
	default:
		return a.fail(span, fmt.Errorf("load session: %w", err))
	}

	// a token is bound to the cookies it was issued with, both start fresh
	a.client.ResetCookies()
	token, err := a.client.FetchToken(ctx)
	if err != nil {
		return a.fail(span, fmt.Errorf("fetch token: %w", err))
	}
	a.setState(STATE_TOKEN_FETCHED)

	creds := Credentials{
		Username: username,
		Password: password,
		Token:    token,
	}
	page, err := a.client.PostForm(ctx, core.PathLogin, a.loginForm(creds))
	if err != nil {
		return a.fail(span, fmt.Errorf("submit credentials: %w", err))
	}
	doc, err := page.Document()
	if err != nil {
		return a.fail(span, fmt.Errorf("read login response: %w", err))
	}

	result := interpretLogin(page, doc)
	if result.Code == REQUIRE_2FA {
		a.setState(STATE_AWAITING_2FA)
		if otp == nil {
			a.setState(STATE_FAILED)
			span.SetStatus(codes.Error, "second factor required")
			return result, core.Errorf(core.USER_NOT_LOGGED, "account requires a two-factor code but no provider was given")
		}

		code, err := a.awaitCode(ctx, otp)
		if err != nil {
			a.setState(STATE_FAILED)
			span.RecordError(err)
			span.SetStatus(codes.Error, "no two-factor code")
			return result, err
		}

		twoFactorToken := strings.TrimSpace(doc.Find("input[name=_xfToken]").First().AttrOr("value", ""))
		if twoFactorToken == "" {
			twoFactorToken = token
		}
		result, err = a.Send2FACode(ctx, code, twoFactorToken)
		if err != nil && result.Code == INCORRECT_2FA_CODE {
			a.setState(STATE_FAILED)
			span.RecordError(err)
			span.SetStatus(codes.Error, result.Code.String())
			return result, err
		}
		if err != nil {
			return a.fail(span, err)
		}
	}

	if !result.Success {
		a.setState(STATE_FAILED)
		span.SetStatus(codes.Error, result.Code.String())
		return result, nil
	}

	a.session.Create(username, password, token)
	a.session.Cookies = a.client.Cookies()
	err = a.session.Save()
	if err != nil {
		// the login itself succeeded, only the next process has to log in again
		a.tel.ReportBroken(report_auth_session, fmt.Errorf("save session: %w", err))
	}

	a.setState(STATE_AUTHENTICATED)
	return result, nil
}

func (a *Authenticator) fail(span trace.Span, err error) (LoginResult, error) {
	a.setState(STATE_FAILED)
	span.RecordError(err)
	span.SetStatus(codes.Error, "login failed")
	a.tel.ReportWarning(report_auth_login, err)
	return LoginResult{
		Success: false,
		Code:    UNKNOWN_ERROR,
		Message: err.Error(),
	}, err
}

func (a *Authenticator) loginForm(creds Credentials) url.Values {
	return url.Values{
		"login":               {creds.Username},
		"password":            {creds.Password},
		"remember":            {"1"},
		"_xfRedirect":         {a.client.BaseUrl.String() + "/"},
		"_xfToken":            {creds.Token},
		"url":                 {""},
		"password_confirm":    {""},
		"additional_security": {""},
		"website_code":        {""},
	}
}

func interpretLogin(page core.Page, doc *goquery.Document) LoginResult {
	if strings.HasPrefix(page.Url.Path, core.PathTwoFactor) ||
		doc.Find(`form[action*="/login/two-step"]`).Length() > 0 {
		return LoginResult{
			Success: false,
			Code:    REQUIRE_2FA,
			Message: "two-factor authentication required",
		}
	}

	errText := htmlutil.SelectionText(doc.Find("div.blockMessage--error"))
	if errText != "" {
		lower := strings.ToLower(errText)
		if strings.Contains(lower, "incorrect password") ||
			strings.Contains(lower, "could not be found") {
			return LoginResult{
				Success: false,
				Code:    INCORRECT_CREDENTIALS,
				Message: errText,
			}
		}
		return LoginResult{
			Success: false,
			Code:    UNKNOWN_ERROR,
			Message: errText,
		}
	}

	if doc.Find("html").AttrOr("data-logged-in", "") == "true" {
		return LoginResult{
			Success: true,
			Code:    AUTH_SUCCESSFUL,
			Message: "authentication successful",
		}
	}
	return LoginResult{
		Success: false,
		Code:    UNKNOWN_ERROR,
		Message: "login response is not a logged in page",
	}
}
