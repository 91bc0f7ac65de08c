package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"f95api/lib/htmlutil"
	"f95api/lib/platforms/f95zone/core"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PlatformUser is the public data of a member page.
type PlatformUser struct {
	ID      int
	Name    string
	Url     string
	Title   string
	Avatar  string
	Banners []string

	Messages        int
	ReactionScore   int
	Points          int
	RatingsReceived int
	Joined          time.Time
	LastSeen        time.Time

	Followed bool
	Ignored  bool
	// Private is set when the member restricts who can see the profile.
	Private bool
}

// FetchUser downloads the member page of `id`.
func FetchUser(ctx context.Context, client *core.Client, id int) (PlatformUser, error) {
	ctx, span := tracer.Start(ctx, "scrape:User")
	defer span.End()
	span.SetAttributes(attribute.Int("user", id))

	if id < 1 {
		return PlatformUser{}, core.Errorf(core.PARAMETER_ERROR, "invalid user id %d", id)
	}
	doc, err := client.GetHTML(ctx, core.PathMembers+strconv.Itoa(id)+"/", nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch member page")
		return PlatformUser{}, fmt.Errorf("fetch user %d: %w", id, err)
	}
	user := ParseUser(doc)
	if user.ID == 0 {
		user.ID = id
	}
	return user, nil
}

// ParseUser reads a member page.
func ParseUser(doc *goquery.Document) PlatformUser {
	user := PlatformUser{
		Name:     htmlutil.SelectionText(doc.Find(selectMemberName).First()),
		Title:    htmlutil.SelectionText(doc.Find(selectMemberTitle).First()),
		Banners:  texts(doc.Find(selectMemberBanners)),
		Followed: isToggled(doc.Find(selectMemberFollow).First(), "unfollow"),
		Ignored:  isToggled(doc.Find(selectMemberIgnore).First(), "unignore"),
	}
	if doc.Url != nil {
		user.ID = idFrom(memberIdRegex, doc.Url.Path)
		user.Url = doc.Url.String()
	}

	user.Avatar = resolve(doc.Url, doc.Find(selectMemberAvatar).First().AttrOr("src", ""))

	doc.Find(selectMemberPairs).Each(func(_ int, pair *goquery.Selection) {
		key := strings.ToLower(htmlutil.SelectionText(pair.Find("dt").First()))
		value := pair.Find("dd").First()
		switch key {
		case "messages":
			user.Messages = parseCount(htmlutil.SelectionText(value))
		case "reaction score":
			user.ReactionScore = parseCount(htmlutil.SelectionText(value))
		case "points", "trophy points":
			user.Points = parseCount(htmlutil.SelectionText(value))
		case "ratings received":
			user.RatingsReceived = parseCount(htmlutil.SelectionText(value))
		case "joined":
			user.Joined = parseTime(value.Find("time").First())
		case "last seen":
			user.LastSeen = parseTime(value.Find("time").First())
		}
	})

	message := strings.ToLower(htmlutil.SelectionText(doc.Find(selectMemberPrivate).First()))
	user.Private = strings.Contains(message, "limited") || strings.Contains(message, "private")
	return user
}

// isToggled checks the label of a follow/ignore button, the undo label means
// the action is already active.
func isToggled(button *goquery.Selection, undo string) bool {
	return strings.EqualFold(htmlutil.SelectionText(button), undo)
}
