package core

import (
	"context"
	"strings"
)

// FetchToken reads the one-time xenforo token from the landing page, the
// token is bound to the cookies currently in the jar so it must be fetched
// again for every login attempt.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	page, err := c.GetFresh(ctx, "/", nil)
	if err != nil {
		return "", err
	}
	doc, err := page.Document()
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(doc.Find("input[name=_xfToken]").First().AttrOr("value", ""))
	if token == "" {
		token = strings.TrimSpace(doc.Find("html").AttrOr("data-csrf", ""))
	}
	if token == "" {
		c.tel.ReportBroken(report_client_fetch_token, page.Url.String())
		return "", Errorf(INVALID_TOKEN, "no token found on %s", page.Url)
	}
	return token, nil
}
