package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"f95api/lib/htmlutil"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/paginate"
	"f95api/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// DefaultListLimit bounds each list of a profile.
const DefaultListLimit = 200

type WatchedThread struct {
	Url    string
	Title  string
	Forum  string
	Unread bool
}

type Bookmark struct {
	Url       string
	Title     string
	Snippet   string
	OwnerID   int
	OwnerName string
	Created   time.Time
}

type Alert struct {
	Text   string
	Url    string
	Time   time.Time
	Unread bool
}

type Conversation struct {
	Url       string
	Title     string
	Authors   []string
	LastReply time.Time
	Unread    bool
}

// UserProfile is the private data of the logged in user, composed with
// the public member data.
type UserProfile struct {
	User           PlatformUser
	WatchedThreads []WatchedThread
	Bookmarks      []Bookmark
	Alerts         []Alert
	Conversations  []Conversation
}

type ProfileOptions struct {
	// ListLimit defaults to DefaultListLimit.
	ListLimit int
	MaxPages  int
	Telemetry telemetry.API
}

// CurrentUserID reads the id of the logged in user from the navigation bar,
// it fails with USER_NOT_LOGGED when the page is anonymous.
func CurrentUserID(ctx context.Context, client *core.Client) (int, error) {
	doc, err := client.GetHTML(ctx, core.PathAccount, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch account page: %w", err)
	}
	id := userId(doc.Find(selectCurrentUserId).First())
	if id == 0 {
		id = userId(doc.Find(selectCurrentUserUrl).First())
	}
	if id == 0 {
		return 0, core.Errorf(core.USER_NOT_LOGGED, "no user in the navigation of %s", doc.Url)
	}
	return id, nil
}

// FetchProfile collects the member data and the account lists of the logged
// in user, the lists are fetched concurrently.
func FetchProfile(ctx context.Context, client *core.Client, opts ProfileOptions) (UserProfile, error) {
	ctx, span := tracer.Start(ctx, "scrape:Profile")
	defer span.End()

	if opts.ListLimit <= 0 {
		opts.ListLimit = DefaultListLimit
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NoopAPI{}
	}
	collect := paginate.Options{
		Limit:     opts.ListLimit,
		MaxPages:  opts.MaxPages,
		Telemetry: opts.Telemetry,
	}

	id, err := CurrentUserID(ctx, client)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find current user")
		return UserProfile{}, err
	}

	var profile UserProfile
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		user, err := FetchUser(groupCtx, client, id)
		profile.User = user
		return err
	})
	group.Go(func() error {
		list, err := paginate.Collect(groupCtx, collect, listPages(client, core.PathWatched, selectWatchedThread, parseWatchedThread))
		profile.WatchedThreads = list
		return wrapList("watched threads", err)
	})
	group.Go(func() error {
		list, err := paginate.Collect(groupCtx, collect, listPages(client, core.PathBookmarks, selectBookmark, parseBookmark))
		profile.Bookmarks = list
		return wrapList("bookmarks", err)
	})
	group.Go(func() error {
		list, err := paginate.Collect(groupCtx, collect, listPages(client, core.PathAlerts, selectAlert, parseAlert))
		profile.Alerts = list
		return wrapList("alerts", err)
	})
	group.Go(func() error {
		list, err := paginate.Collect(groupCtx, collect, listPages(client, core.PathConversations, selectConversation, parseConversation))
		profile.Conversations = list
		return wrapList("conversations", err)
	})

	err = group.Wait()
	if err != nil {
		opts.Telemetry.ReportBroken(report_scrape_profile, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to collect profile")
		return UserProfile{}, err
	}
	return profile, nil
}

func wrapList(name string, err error) error {
	if err != nil {
		return fmt.Errorf("collect %s: %w", name, err)
	}
	return nil
}

// listPages reads a paginated account list, `parse` returns false for rows
// that should be skipped.
func listPages[T any](
	client *core.Client,
	endpoint, selector string,
	parse func(base *url.URL, row *goquery.Selection) (T, bool),
) paginate.PageFunc[T] {
	return func(ctx context.Context, page int) (paginate.Page[T], error) {
		params := url.Values{}
		if page > 1 {
			params.Set("page", strconv.Itoa(page))
		}
		doc, err := client.GetHTML(ctx, endpoint, params)
		if err != nil {
			return paginate.Page[T]{}, err
		}
		var items []T
		doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
			item, ok := parse(doc.Url, row)
			if ok {
				items = append(items, item)
			}
		})
		total := paginate.LastPage(htmlutil.SelectionText(doc.Find(selectLastPage).First()))
		return paginate.Page[T]{Items: items, TotalPages: total}, nil
	}
}

func parseWatchedThread(base *url.URL, row *goquery.Selection) (WatchedThread, bool) {
	title := row.Find(selectStructTitle).First()
	href := title.AttrOr("href", "")
	if href == "" {
		return WatchedThread{}, false
	}
	return WatchedThread{
		Url:    resolve(base, href),
		Title:  htmlutil.SelectionText(title),
		Forum:  htmlutil.SelectionText(row.Find(selectStructForum).First()),
		Unread: row.HasClass("is-unread"),
	}, true
}

func parseBookmark(base *url.URL, row *goquery.Selection) (Bookmark, bool) {
	title := row.Find(selectBookmarkTitle).First()
	href := title.AttrOr("href", "")
	if href == "" {
		return Bookmark{}, false
	}
	owner := row.Find(selectBookmarkOwner).First()
	return Bookmark{
		Url:       resolve(base, href),
		Title:     htmlutil.SelectionText(title),
		Snippet:   htmlutil.SelectionText(row.Find(selectBookmarkSnippet).First()),
		OwnerID:   userId(owner),
		OwnerName: htmlutil.SelectionText(owner),
		Created:   parseTime(row.Find("time").First()),
	}, true
}

func parseAlert(base *url.URL, row *goquery.Selection) (Alert, bool) {
	body := row.Find(selectAlertBody).First()
	text := htmlutil.SelectionText(body.Clone().Find("time").Remove().End())
	if text == "" {
		return Alert{}, false
	}
	return Alert{
		Text:   text,
		Url:    resolve(base, row.Find(selectAlertLink).First().AttrOr("href", "")),
		Time:   parseTime(row.Find("time").First()),
		Unread: row.HasClass("is-unread"),
	}, true
}

func parseConversation(base *url.URL, row *goquery.Selection) (Conversation, bool) {
	title := row.Find(selectStructTitle).First()
	href := title.AttrOr("href", "")
	if href == "" {
		return Conversation{}, false
	}
	var authors []string
	for _, name := range texts(row.Find(selectStructAuthors)) {
		if !contains(authors, name) {
			authors = append(authors, name)
		}
	}
	return Conversation{
		Url:       resolve(base, href),
		Title:     htmlutil.SelectionText(title),
		Authors:   authors,
		LastReply: parseTime(row.Find("time").Last()),
		Unread:    row.HasClass("is-unread"),
	}, true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
