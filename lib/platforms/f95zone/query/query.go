package query

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/platform"
)

const (
	MinPage = 1
	// MaxLatestTags is the amount of included tags the latest updates
	// endpoint accepts.
	MaxLatestTags = 5
	// MaxExcludedTags is the amount of excluded tags the thread search accepts.
	MaxExcludedTags = 5
)

type Kind int

const (
	KindLatest Kind = iota + 1
	KindThread
	KindHandiwork
)

func (k Kind) String() string {
	switch k {
	case KindLatest:
		return "latest"
	case KindThread:
		return "thread"
	case KindHandiwork:
		return "handiwork"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Category string

const (
	CategoryGames      Category = "games"
	CategoryComics     Category = "comics"
	CategoryAnimations Category = "animations"
	CategoryAssets     Category = "assets"
)

// forum node of every category, used by the thread search
var categoryNodes = map[Category]int{
	CategoryGames:      2,
	CategoryComics:     40,
	CategoryAnimations: 94,
	CategoryAssets:     95,
}

func (c Category) orDefault() Category {
	if c == "" {
		return CategoryGames
	}
	return c
}

func validateCategory(c Category) error {
	if c == "" {
		return nil
	}
	_, ok := categoryNodes[c]
	if !ok {
		return core.Errorf(core.PARAMETER_ERROR, "unknown category %q", c)
	}
	return nil
}

type Order string

const (
	OrderDate       Order = "date"
	OrderLikes      Order = "likes"
	OrderViews      Order = "views"
	OrderTitle      Order = "title"
	OrderRating     Order = "rating"
	OrderRelevance  Order = "relevance"
	OrderLastUpdate Order = "last_update"
	OrderReplies    Order = "replies"
)

func validateOrder(kind Kind, order Order, allowed ...Order) error {
	if order == "" {
		return nil
	}
	for _, o := range allowed {
		if o == order {
			return nil
		}
	}
	return core.Errorf(core.PARAMETER_ERROR, "%s search cannot be ordered by %q", kind, order)
}

// Request describes an http request without sending it.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Form     url.Values
}

// Env carries what a query needs from the outside to be built.
type Env struct {
	// Token is required by thread searches.
	Token string
	// Platform resolves tag and prefix names, it is required only when a
	// query filters by something that the endpoint expects as an id.
	Platform *platform.Data
	// Time defaults to chrono.StandardTime.
	Time chrono.TimeAPI
}

func (e Env) now() chrono.TimeAPI {
	if e.Time == nil {
		return chrono.NewStandardTime()
	}
	return e.Time
}

func (e Env) platformData(what string) (*platform.Data, error) {
	if e.Platform == nil {
		return nil, core.Errorf(core.PARAMETER_ERROR, "platform data is required to filter by %s", what)
	}
	return e.Platform, nil
}

// Query is a typed search against the platform.
type Query interface {
	Kind() Kind
	// Validate returns a PARAMETER_ERROR describing the first invalid field.
	Validate() error
	// Build renders the query into a request, it is deterministic for the
	// same fields and Env.
	Build(env Env) (Request, error)
}

// IsValid is Validate as a boolean.
func IsValid(q Query) bool {
	return q.Validate() == nil
}

// Execute validates and builds the query and sends it through `client`.
// Every expected failure is returned as a *core.Error.
func Execute(ctx context.Context, client *core.Client, q Query, env Env) (core.Page, error) {
	err := q.Validate()
	if err != nil {
		return core.Page{}, err
	}
	req, err := q.Build(env)
	if err != nil {
		return core.Page{}, err
	}
	return client.Do(ctx, req.Method, req.Endpoint, req.Query, req.Form)
}

func validatePage(page int) error {
	if page < MinPage {
		return core.Errorf(core.PARAMETER_ERROR, "page must be at least %d, got %d", MinPage, page)
	}
	return nil
}

// overlap returns the first name found in both lists.
func overlap(a, b []string) string {
	set := make(map[string]bool, len(a))
	for _, name := range a {
		set[strings.ToLower(strings.TrimSpace(name))] = true
	}
	for _, name := range b {
		if set[strings.ToLower(strings.TrimSpace(name))] {
			return name
		}
	}
	return ""
}

func validateExclusive(what string, included, excluded []string) error {
	name := overlap(included, excluded)
	if name != "" {
		return core.Errorf(core.PARAMETER_ERROR, "%s %q is both included and excluded", what, name)
	}
	return nil
}

func addIds(values url.Values, key string, ids []int) {
	for _, id := range ids {
		values.Add(key, strconv.Itoa(id))
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
