package query

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"f95api/lib/platforms/f95zone/core"
)

// LatestRows is the amount of results the latest updates endpoint returns per page.
const LatestRows = 90

// LatestDateWindows are the values (in days) accepted by LatestSearchQuery.Date,
// 0 means no limit.
var LatestDateWindows = []int{0, 1, 3, 7, 14, 30, 90, 180, 365}

// LatestSearchQuery searches the "latest updates" catalog, it is fast but
// only understands a few filters.
type LatestSearchQuery struct {
	Category         Category
	Keywords         string
	Creator          string
	IncludedTags     []string
	ExcludedTags     []string
	IncludedPrefixes []string
	ExcludedPrefixes []string
	// Date limits the results to threads updated in the last n days.
	Date  int
	Order Order
	Page  int
}

func NewLatestSearchQuery() LatestSearchQuery {
	return LatestSearchQuery{
		Category: CategoryGames,
		Order:    OrderDate,
		Page:     MinPage,
	}
}

func (q LatestSearchQuery) Kind() Kind {
	return KindLatest
}

func (q LatestSearchQuery) Validate() error {
	err := validatePage(q.Page)
	if err != nil {
		return err
	}
	err = validateCategory(q.Category)
	if err != nil {
		return err
	}
	err = validateOrder(KindLatest, q.Order, OrderDate, OrderLikes, OrderViews, OrderTitle, OrderRating)
	if err != nil {
		return err
	}
	if len(q.IncludedTags) > MaxLatestTags {
		return core.Errorf(core.PARAMETER_ERROR, "latest search accepts at most %d tags, got %d", MaxLatestTags, len(q.IncludedTags))
	}
	if !slices.Contains(LatestDateWindows, q.Date) {
		return core.Errorf(core.PARAMETER_ERROR, "date must be one of %v, got %d", LatestDateWindows, q.Date)
	}
	err = validateExclusive("tag", q.IncludedTags, q.ExcludedTags)
	if err != nil {
		return err
	}
	return validateExclusive("prefix", q.IncludedPrefixes, q.ExcludedPrefixes)
}

func (q LatestSearchQuery) Build(env Env) (Request, error) {
	order := q.Order
	if order == "" {
		order = OrderDate
	}

	params := url.Values{}
	params.Set("cmd", "list")
	params.Set("cat", string(q.Category.orDefault()))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("sort", string(order))
	params.Set("rows", strconv.Itoa(LatestRows))
	if q.Keywords != "" {
		params.Set("search", q.Keywords)
	}
	if q.Creator != "" {
		params.Set("creator", q.Creator)
	}
	if q.Date > 0 {
		params.Set("date", strconv.Itoa(q.Date))
	}

	if len(q.IncludedTags)+len(q.ExcludedTags) > 0 {
		data, err := env.platformData("tags")
		if err != nil {
			return Request{}, err
		}
		included, err := data.TagIDs(q.IncludedTags)
		if err != nil {
			return Request{}, err
		}
		excluded, err := data.TagIDs(q.ExcludedTags)
		if err != nil {
			return Request{}, err
		}
		addIds(params, "tags[]", included)
		addIds(params, "notags[]", excluded)
	}
	if len(q.IncludedPrefixes)+len(q.ExcludedPrefixes) > 0 {
		data, err := env.platformData("prefixes")
		if err != nil {
			return Request{}, err
		}
		included, err := data.PrefixIDs(q.IncludedPrefixes)
		if err != nil {
			return Request{}, err
		}
		excluded, err := data.PrefixIDs(q.ExcludedPrefixes)
		if err != nil {
			return Request{}, err
		}
		addIds(params, "prefixes[]", included)
		addIds(params, "noprefixes[]", excluded)
	}

	return Request{
		Method:   http.MethodGet,
		Endpoint: core.PathLatestData,
		Query:    params,
	}, nil
}
