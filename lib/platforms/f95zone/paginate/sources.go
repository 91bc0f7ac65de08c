package paginate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"f95api/lib/htmlutil"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/query"
)

// LatestItem is a single entry of the latest updates catalog.
type LatestItem struct {
	ThreadID int      `json:"thread_id"`
	Title    string   `json:"title"`
	Creator  string   `json:"creator"`
	Version  string   `json:"version"`
	Views    int      `json:"views"`
	Likes    int      `json:"likes"`
	Rating   float64  `json:"rating"`
	Prefixes []int    `json:"prefixes"`
	Tags     []int    `json:"tags"`
	Cover    string   `json:"cover"`
	Screens  []string `json:"screens"`
	Date     string   `json:"date"`
	New      bool     `json:"new"`
	Watched  bool     `json:"watched"`

	// Url is the thread url, filled from ThreadID.
	Url string `json:"-"`
}

type latestResponse struct {
	Status string `json:"status"`
	Msg    struct {
		Data       []LatestItem `json:"data"`
		Pagination struct {
			Page  int `json:"page"`
			Total int `json:"total"`
		} `json:"pagination"`
		Count int `json:"count"`
	} `json:"msg"`
}

// ThreadUrl returns the canonical url of a thread id.
func ThreadUrl(client *core.Client, id int) string {
	link, err := client.Url(core.PathThreads + strconv.Itoa(id) + "/")
	if err != nil {
		// the path is built from an int, it always parses
		panic(err)
	}
	return link.String()
}

// LatestPages reads the latest updates catalog, the page of `q` is
// replaced by the requested one.
func LatestPages(client *core.Client, q query.LatestSearchQuery, env query.Env) PageFunc[LatestItem] {
	return func(ctx context.Context, page int) (Page[LatestItem], error) {
		q.Page = page
		res, err := query.Execute(ctx, client, q, env)
		if err != nil {
			return Page[LatestItem]{}, err
		}

		var body latestResponse
		err = res.JSON(&body)
		if err != nil {
			return Page[LatestItem]{}, err
		}
		if body.Status != "ok" {
			return Page[LatestItem]{}, core.Errorf(core.PARSE_ERROR, "latest updates answered with status %q", body.Status)
		}

		items := body.Msg.Data
		for i := range items {
			items[i].Url = ThreadUrl(client, items[i].ThreadID)
		}
		return Page[LatestItem]{
			Items:      items,
			TotalPages: body.Msg.Pagination.Total,
		}, nil
	}
}

// LatestURLs is LatestPages reduced to the thread urls.
func LatestURLs(client *core.Client, q query.LatestSearchQuery, env query.Env) PageFunc[string] {
	return Map(LatestPages(client, q, env), func(item LatestItem) string {
		return item.Url
	})
}

const (
	selectSearchResult = "li.block-row h3.contentRow-title a"
	selectLastPage     = ".pageNav-main li:last-child a"
)

var threadPathRegex = regexp.MustCompile(`^(/threads/[^/]+/)`)

// ThreadPages reads the forum search results as thread urls, results
// pointing to a post are normalized to their thread.
func ThreadPages(client *core.Client, q query.ThreadSearchQuery, env query.Env) PageFunc[string] {
	return func(ctx context.Context, page int) (Page[string], error) {
		q.Page = page
		res, err := query.Execute(ctx, client, q, env)
		if err != nil {
			return Page[string]{}, err
		}
		doc, err := res.Document()
		if err != nil {
			return Page[string]{}, err
		}

		var urls []string
		for _, anchor := range htmlutil.GetAnchors(res.Url, doc.Find(selectSearchResult)) {
			if !client.IsPlatformUrl(anchor.Url) {
				continue
			}
			groups := threadPathRegex.FindStringSubmatch(anchor.Url.Path)
			if len(groups) < 2 {
				continue
			}
			normalized := *anchor.Url
			normalized.Path = groups[1]
			normalized.RawQuery = ""
			normalized.Fragment = ""
			urls = append(urls, normalized.String())
		}

		return Page[string]{
			Items:      urls,
			TotalPages: LastPage(htmlutil.SelectionText(doc.Find(selectLastPage).First())),
		}, nil
	}
}

// LastPage parses the last page number of a page navigation, a missing or
// unreadable number means there is a single page.
func LastPage(text string) int {
	total, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || total < 1 {
		return 1
	}
	return total
}

// HandiworkURLs collects up to `opts.Limit` thread urls matching `q`, using
// the endpoint picked by SelectSearchType. A token is fetched when the
// thread search is used and `env` carries none.
func HandiworkURLs(ctx context.Context, client *core.Client, q query.HandiworkSearchQuery, env query.Env, opts Options) ([]string, error) {
	err := q.Validate()
	if err != nil {
		return nil, err
	}
	target, err := q.Target(env)
	if err != nil {
		return nil, err
	}
	if opts.Start == 0 {
		opts.Start = q.Page
	}

	var fetch PageFunc[string]
	switch target := target.(type) {
	case query.LatestSearchQuery:
		fetch = LatestURLs(client, target, env)
	case query.ThreadSearchQuery:
		if env.Token == "" {
			env.Token, err = client.FetchToken(ctx)
			if err != nil {
				return nil, err
			}
		}
		fetch = ThreadPages(client, target, env)
	default:
		return nil, fmt.Errorf("unexpected search target %T", target)
	}

	return Collect(ctx, opts, Dedupe(fetch))
}
