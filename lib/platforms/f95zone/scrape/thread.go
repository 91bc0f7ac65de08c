package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"f95api/lib/htmlutil"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/paginate"
	"f95api/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("f95zone/scrape")

const (
	report_scrape_thread  = "scrape.thread"
	report_scrape_rating  = "scrape.thread-rating"
	report_scrape_profile = "scrape.profile"
)

type Rating struct {
	Average float64
	Best    float64
	Count   int
}

type Thread struct {
	ID         int
	Url        string
	Title      string
	Prefixes   []string
	Tags       []string
	Rating     Rating
	OwnerID    int
	OwnerName  string
	Created    time.Time
	LastUpdate time.Time
	Category   string
	// Pages is the amount of post pages.
	Pages    int
	MainPost Post
}

type jsonLdRating struct {
	RatingValue flexFloat `json:"ratingValue"`
	BestRating  flexFloat `json:"bestRating"`
	RatingCount flexFloat `json:"ratingCount"`
}

type jsonLd struct {
	Type            string        `json:"@type"`
	DateCreated     string        `json:"dateCreated"`
	DateModified    string        `json:"dateModified"`
	AggregateRating *jsonLdRating `json:"aggregateRating"`
}

// FetchThread downloads and parses the first page of a thread.
func FetchThread(ctx context.Context, client *core.Client, tel telemetry.API, url string) (Thread, *goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "scrape:Thread")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	doc, err := client.GetHTML(ctx, url, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch thread")
		return Thread{}, nil, fmt.Errorf("fetch thread %s: %w", url, err)
	}
	thread, err := ParseThread(doc, tel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse thread")
		return Thread{}, nil, err
	}
	return thread, doc, nil
}

// ParseThread reads the fixed fields of a thread page, doc.Url must be set.
func ParseThread(doc *goquery.Document, tel telemetry.API) (Thread, error) {
	titleSel := doc.Find(selectThreadTitle).First()
	if titleSel.Length() == 0 {
		return Thread{}, core.Errorf(core.PARSE_ERROR, "%s is not a thread page", doc.Url)
	}

	thread := Thread{
		Title:    htmlutil.SelectionText(titleSel.Clone().Find(selectTitleLabels).Remove().End()),
		Prefixes: parsePrefixes(doc.Find(selectTitlePrefixes)),
		Tags:     texts(doc.Find(selectTags)),
		Created:  parseTime(doc.Find(selectCreated).First()),
		Pages:    paginate.LastPage(htmlutil.SelectionText(doc.Find(selectLastPage).First())),
	}
	if doc.Url != nil {
		thread.ID = ThreadID(doc.Url.Path)
		canonical := *doc.Url
		canonical.RawQuery = ""
		canonical.Fragment = ""
		canonical.Path = threadRoot(canonical.Path)
		thread.Url = canonical.String()
	}

	owner := doc.Find(selectOwner).First()
	thread.OwnerID = userId(owner)
	thread.OwnerName = htmlutil.SelectionText(owner)

	breadcrumbs := texts(doc.Find(selectBreadcrumbs))
	if len(breadcrumbs) > 0 {
		thread.Category = strings.ToLower(breadcrumbs[len(breadcrumbs)-1])
	}

	ld := findJsonLd(doc, tel)
	if ld.AggregateRating != nil {
		thread.Rating = Rating{
			Average: float64(ld.AggregateRating.RatingValue),
			Best:    float64(ld.AggregateRating.BestRating),
			Count:   int(ld.AggregateRating.RatingCount),
		}
	}
	if thread.Created.IsZero() {
		thread.Created = parseDate(ld.DateCreated)
	}
	thread.LastUpdate = parseDate(ld.DateModified)
	if thread.LastUpdate.IsZero() {
		thread.LastUpdate = thread.Created
	}

	posts := parsePosts(doc)
	if len(posts) > 0 {
		thread.MainPost = posts[0]
	}
	return thread, nil
}

func parsePrefixes(sel *goquery.Selection) []string {
	var out []string
	for _, text := range texts(sel) {
		text = strings.TrimSpace(strings.Trim(text, "[]"))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// threadRoot cuts "/threads/x.1/page-2" down to "/threads/x.1/".
func threadRoot(path string) string {
	index := strings.Index(path, "/threads/")
	if index < 0 {
		return path
	}
	rest := path[index+len("/threads/"):]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return path + "/"
	}
	return path[:index+len("/threads/")+slash+1]
}

// findJsonLd returns the structured data describing the thread, the zero
// value when the page has none.
func findJsonLd(doc *goquery.Document, tel telemetry.API) jsonLd {
	var found jsonLd
	doc.Find(selectJsonLd).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var candidate jsonLd
		err := decodeJsonLd(script.Text(), &candidate)
		if err != nil {
			tel.ReportWarning(report_scrape_rating, err)
			return true
		}
		if candidate.AggregateRating == nil && candidate.DateModified == "" {
			return true
		}
		found = candidate
		return false
	})
	return found
}
