package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"f95api/lib/htmlutil"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/paginate"
	"f95api/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostsPerPage is the amount of posts on a thread page.
const PostsPerPage = 20

type Post struct {
	ID         int
	Number     int
	Published  time.Time
	LastEdit   time.Time
	OwnerID    int
	OwnerName  string
	Bookmarked bool
	Body       PostElement
}

// PostPage returns the thread page holding the post with the given number.
func PostPage(number int) int {
	if number < 1 {
		return 1
	}
	return (number-1)/PostsPerPage + 1
}

// ParsePosts reads every post of a thread page.
func ParsePosts(doc *goquery.Document) []Post {
	return parsePosts(doc)
}

func parsePosts(doc *goquery.Document) []Post {
	var posts []Post
	doc.Find(selectPost).Each(func(_ int, sel *goquery.Selection) {
		post, ok := parsePost(sel)
		if ok {
			posts = append(posts, post)
		}
	})
	return posts
}

func parsePost(sel *goquery.Selection) (Post, bool) {
	id := idFrom(postIdRegex, sel.AttrOr("data-content", sel.AttrOr("id", "")))
	if id == 0 {
		return Post{}, false
	}

	number := htmlutil.SelectionText(sel.Find(selectPostNumber).First())
	number = strings.TrimPrefix(strings.TrimSpace(number), "#")
	parsedNumber, _ := strconv.Atoi(strings.ReplaceAll(number, ",", ""))

	owner := sel.Find(selectPostOwner).First()
	ownerName := htmlutil.SelectionText(owner)
	if ownerName == "" {
		ownerName = strings.TrimSpace(sel.AttrOr("data-author", ""))
	}

	return Post{
		ID:         id,
		Number:     parsedNumber,
		Published:  parseTime(sel.Find(selectPostPublished).First()),
		LastEdit:   parseTime(sel.Find(selectPostLastEdit).First()),
		OwnerID:    userId(owner),
		OwnerName:  ownerName,
		Bookmarked: sel.Find(selectPostBookmark).Length() > 0,
		Body:       ParseBody(sel.Find(selectPostBody).First()),
	}, true
}

type PostsOptions struct {
	// Limit defaults to every post of the thread.
	Limit     int
	MaxPages  int
	Telemetry telemetry.API
}

// Posts walks the pages of `thread` and returns its posts in order.
func Posts(ctx context.Context, client *core.Client, thread Thread, opts PostsOptions) ([]Post, error) {
	ctx, span := tracer.Start(ctx, "scrape:Posts")
	defer span.End()
	span.SetAttributes(attribute.Int("thread", thread.ID))

	if thread.Url == "" {
		return nil, core.Errorf(core.PARAMETER_ERROR, "thread has no url")
	}
	pages := max(thread.Pages, 1)
	limit := opts.Limit
	if limit <= 0 {
		limit = pages * PostsPerPage
	}

	fetch := func(ctx context.Context, page int) (paginate.Page[Post], error) {
		endpoint := thread.Url
		if page > 1 {
			endpoint = strings.TrimSuffix(thread.Url, "/") + "/page-" + strconv.Itoa(page)
		}
		doc, err := client.GetHTML(ctx, endpoint, nil)
		if err != nil {
			return paginate.Page[Post]{}, err
		}
		total := paginate.LastPage(htmlutil.SelectionText(doc.Find(selectLastPage).First()))
		return paginate.Page[Post]{Items: parsePosts(doc), TotalPages: total}, nil
	}

	posts, err := paginate.Collect(ctx, paginate.Options{
		Limit:     limit,
		MaxPages:  opts.MaxPages,
		Telemetry: opts.Telemetry,
	}, fetch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to collect posts")
		return posts, fmt.Errorf("posts of thread %d: %w", thread.ID, err)
	}
	return posts, nil
}

// FetchPost downloads the thread page holding the post `id` and parses it.
func FetchPost(ctx context.Context, client *core.Client, id int) (Post, error) {
	ctx, span := tracer.Start(ctx, "scrape:Post")
	defer span.End()
	span.SetAttributes(attribute.Int("post", id))

	if id < 1 {
		return Post{}, core.Errorf(core.PARAMETER_ERROR, "invalid post id %d", id)
	}
	doc, err := client.GetHTML(ctx, core.PathPosts+strconv.Itoa(id)+"/", nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch post")
		return Post{}, fmt.Errorf("fetch post %d: %w", id, err)
	}

	article := doc.Find(fmt.Sprintf(`%s[data-content="post-%d"]`, selectPost, id)).First()
	if article.Length() == 0 {
		return Post{}, core.Errorf(core.NOT_FOUND, "post %d is not on %s", id, doc.Url)
	}
	post, _ := parsePost(article)
	return post, nil
}
