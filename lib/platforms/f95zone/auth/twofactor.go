package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"f95api/lib/platforms/f95zone/core"
)

type twoFactorResponse struct {
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

// awaitCode is the only point where the login waits on the caller, it gives
// up when `ctx` is done or the two-factor timeout expires.
func (a *Authenticator) awaitCode(ctx context.Context, provider OTPProvider) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.TwoFactorTimeout)
	defer cancel()

	type answer struct {
		code string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		code, err := provider(ctx)
		done <- answer{code: code, err: err}
	}()

	select {
	case <-ctx.Done():
		a.tel.ReportWarning(report_auth_2fa, "gave up waiting for code", ctx.Err())
		return "", fmt.Errorf("wait for two-factor code: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("two-factor code provider: %w", res.err)
		}
		return strings.TrimSpace(res.code), nil
	}
}

func isNumeric(code string) bool {
	if code == "" {
		return false
	}
	for _, c := range code {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

// Send2FACode submits the code of the second factor, `token` is the one
// embedded in the two-step page (or the login token when the page has none).
func (a *Authenticator) Send2FACode(ctx context.Context, code, token string) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth:Send2FACode")
	defer span.End()

	if !isNumeric(code) {
		return LoginResult{Success: false, Code: INCORRECT_2FA_CODE, Message: "code must be numeric"},
			core.Errorf(core.PARAMETER_ERROR, "two-factor code must be numeric, got %q", code)
	}

	trust := "0"
	if a.opts.TrustedDevice {
		trust = "1"
	}
	form := url.Values{
		"code":            {code},
		"confirm":         {"1"},
		"provider":        {"totp"},
		"remember":        {"1"},
		"trust":           {trust},
		"_xfRedirect":     {a.client.BaseUrl.String() + "/"},
		"_xfToken":        {token},
		"_xfResponseType": {"json"},
		"_xfWithData":     {"1"},
	}

	page, err := a.client.PostForm(ctx, core.PathTwoFactor, form)
	// rejected codes come back as a 400 with a json body
	if err != nil && !(errors.Is(err, core.ErrTransport) && page.IsJSON()) {
		return LoginResult{}, fmt.Errorf("submit two-factor code: %w", err)
	}
	var response twoFactorResponse
	err = page.JSON(&response)
	if err != nil {
		return LoginResult{}, fmt.Errorf("read two-factor response: %w", err)
	}

	if response.Status == "ok" {
		return LoginResult{
			Success: true,
			Code:    AUTH_SUCCESSFUL_2FA,
			Message: "authentication successful with two-factor code",
		}, nil
	}

	message := strings.Join(response.Errors, "; ")
	if strings.Contains(strings.ToLower(message), "could not be confirmed") {
		return LoginResult{
			Success: false,
			Code:    INCORRECT_2FA_CODE,
			Message: message,
		}, nil
	}
	a.tel.ReportWarning(report_auth_2fa, response.Status, message)
	return LoginResult{
		Success: false,
		Code:    UNKNOWN_ERROR,
		Message: message,
	}, nil
}
