package scrape

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"f95api/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// parseDate accepts the date formats used by the platform, the zero time is
// returned when nothing matches.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseTime reads a xenforo <time> element, the unix `data-time` wins over
// the `datetime` attribute.
func parseTime(sel *goquery.Selection) time.Time {
	if sel.Length() == 0 {
		return time.Time{}
	}
	unix, err := strconv.ParseInt(sel.AttrOr("data-time", ""), 10, 64)
	if err == nil {
		return time.Unix(unix, 0).UTC()
	}
	return parseDate(sel.AttrOr("datetime", ""))
}

// parseCount reads numbers like "1,234" or "12K".
func parseCount(value string) int {
	value = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), ",", ""))
	multiplier := 1.0
	switch {
	case strings.HasSuffix(value, "K"):
		multiplier = 1e3
		value = strings.TrimSuffix(value, "K")
	case strings.HasSuffix(value, "M"):
		multiplier = 1e6
		value = strings.TrimSuffix(value, "M")
	}
	number, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int(number * multiplier)
}

var (
	threadIdRegex = regexp.MustCompile(`/threads/(?:[^/]*\.)?(\d+)/?`)
	postIdRegex   = regexp.MustCompile(`post-(\d+)`)
	memberIdRegex = regexp.MustCompile(`/members/(?:[^/]*\.)?(\d+)/?`)
)

func idFrom(regex *regexp.Regexp, value string) int {
	groups := regex.FindStringSubmatch(value)
	if len(groups) < 2 {
		return 0
	}
	id, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0
	}
	return id
}

// ThreadID extracts the id of a thread url, 0 when there is none.
func ThreadID(url string) int {
	return idFrom(threadIdRegex, url)
}

func userId(sel *goquery.Selection) int {
	id, err := strconv.Atoi(sel.AttrOr("data-user-id", ""))
	if err == nil {
		return id
	}
	return idFrom(memberIdRegex, sel.AttrOr("href", ""))
}

// flexFloat decodes numbers that are sometimes sent as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	value := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if value == "" || value == "null" {
		*f = 0
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(parsed)
	return nil
}

func texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		text := htmlutil.SelectionText(s)
		if text != "" {
			out = append(out, text)
		}
	})
	return out
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func decodeJsonLd(script string, out any) error {
	return json.Unmarshal([]byte(strings.TrimSpace(script)), out)
}

// resolve returns `href` resolved against `base`, or `href` itself when it
// cannot be parsed.
func resolve(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	link, err := htmlutil.ResolveUrl(base, href)
	if err != nil {
		return href
	}
	return link.String()
}
