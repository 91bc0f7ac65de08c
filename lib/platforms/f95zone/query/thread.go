package query

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"f95api/lib/platforms/f95zone/core"
)

const searchDateLayout = "2006-01-02"

// ThreadSearchQuery uses the forum search, it is slower than the latest
// updates catalog but supports date ranges, reply counts and any amount of tags.
type ThreadSearchQuery struct {
	Category         Category
	Keywords         string
	IncludedTags     []string
	ExcludedTags     []string
	IncludedPrefixes []string
	NewerThan        time.Time
	OlderThan        time.Time
	OnlyTitles       bool
	Order            Order
	MinimumReplies   int
	Page             int
}

func NewThreadSearchQuery() ThreadSearchQuery {
	return ThreadSearchQuery{
		Category: CategoryGames,
		Order:    OrderRelevance,
		Page:     MinPage,
	}
}

func (q ThreadSearchQuery) Kind() Kind {
	return KindThread
}

func (q ThreadSearchQuery) Validate() error {
	err := validatePage(q.Page)
	if err != nil {
		return err
	}
	err = validateCategory(q.Category)
	if err != nil {
		return err
	}
	err = validateOrder(KindThread, q.Order, OrderRelevance, OrderDate, OrderLastUpdate, OrderReplies)
	if err != nil {
		return err
	}
	if q.MinimumReplies < 0 {
		return core.Errorf(core.PARAMETER_ERROR, "minimum replies cannot be negative, got %d", q.MinimumReplies)
	}
	if len(q.ExcludedTags) > MaxExcludedTags {
		return core.Errorf(core.PARAMETER_ERROR, "thread search accepts at most %d excluded tags, got %d", MaxExcludedTags, len(q.ExcludedTags))
	}
	if !q.NewerThan.IsZero() && !q.OlderThan.IsZero() && q.NewerThan.After(q.OlderThan) {
		return core.Errorf(core.PARAMETER_ERROR, "newer than (%s) is after older than (%s)",
			q.NewerThan.Format(searchDateLayout), q.OlderThan.Format(searchDateLayout))
	}
	return validateExclusive("tag", q.IncludedTags, q.ExcludedTags)
}

func (q ThreadSearchQuery) Build(env Env) (Request, error) {
	if env.Token == "" {
		return Request{}, core.Errorf(core.INVALID_TOKEN, "thread search requires a token")
	}

	order := q.Order
	if order == "" {
		order = OrderRelevance
	}
	keywords := q.Keywords
	if keywords == "" {
		keywords = "*"
	}

	form := url.Values{}
	form.Set("_xfToken", env.Token)
	form.Set("keywords", keywords)
	form.Set("search_type", "post")
	form.Set("c[child_nodes]", "1")
	form.Set("c[nodes][]", strconv.Itoa(categoryNodes[q.Category.orDefault()]))
	form.Set("o", string(order))
	form.Set("page", strconv.Itoa(q.Page))
	if q.OnlyTitles {
		form.Set("c[title_only]", "1")
	}
	if !q.NewerThan.IsZero() {
		form.Set("c[newer_than]", q.NewerThan.Format(searchDateLayout))
	}
	if !q.OlderThan.IsZero() {
		form.Set("c[older_than]", q.OlderThan.Format(searchDateLayout))
	}
	if q.MinimumReplies > 0 {
		form.Set("c[min_reply_count]", strconv.Itoa(q.MinimumReplies))
	}
	// the search takes tag names instead of ids
	if len(q.IncludedTags) > 0 {
		form.Set("c[tags]", strings.Join(q.IncludedTags, ","))
	}
	if len(q.ExcludedTags) > 0 {
		form.Set("c[excludeTags]", strings.Join(q.ExcludedTags, ","))
	}
	if len(q.IncludedPrefixes) > 0 {
		data, err := env.platformData("prefixes")
		if err != nil {
			return Request{}, err
		}
		ids, err := data.PrefixIDs(q.IncludedPrefixes)
		if err != nil {
			return Request{}, err
		}
		addIds(form, "c[prefixes][]", ids)
	}

	return Request{
		Method:   http.MethodPost,
		Endpoint: core.PathSearch,
		Form:     form,
	}, nil
}
