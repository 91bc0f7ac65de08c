package query

import (
	"math"
	"time"

	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/core"
)

// sort keys an endpoint does not support are replaced following the chain
// likes -> replies -> views
var (
	threadOrders = map[Order]Order{
		OrderLikes:  OrderReplies,
		OrderViews:  OrderReplies,
		OrderTitle:  OrderRelevance,
		OrderRating: OrderRelevance,
	}
	latestOrders = map[Order]Order{
		OrderReplies:    OrderViews,
		OrderRelevance:  OrderRating,
		OrderLastUpdate: OrderDate,
	}
	handiworkOrders = map[Order]Order{
		OrderRating:     OrderRelevance,
		OrderLastUpdate: OrderDate,
	}
)

func fallbackOrder(order Order, table map[Order]Order) Order {
	sub, ok := table[order]
	if ok {
		return sub
	}
	return order
}

// Cast converts `q` into the query variant `target`, failing with a
// PARAMETER_ERROR when a field of `q` cannot be expressed by the target.
// Unsupported sort keys are substituted instead of failing.
func Cast(q Query, target Kind, clock chrono.TimeAPI) (Query, error) {
	if q.Kind() == target {
		return q, nil
	}
	if clock == nil {
		clock = chrono.NewStandardTime()
	}
	now := clock.Now()

	lifted, err := lift(q, now)
	if err != nil {
		return nil, err
	}
	switch target {
	case KindHandiwork:
		return lifted, nil
	case KindLatest:
		return toLatest(lifted, now)
	case KindThread:
		return toThread(lifted)
	}
	return nil, core.Errorf(core.PARAMETER_ERROR, "cannot cast %s query to %s", q.Kind(), target)
}

func notRepresentable(from, to Kind, field string) error {
	return core.Errorf(core.PARAMETER_ERROR, "cannot cast %s query to %s: %s is not supported", from, to, field)
}

func lift(q Query, now time.Time) (HandiworkSearchQuery, error) {
	switch q := q.(type) {
	case HandiworkSearchQuery:
		return q, nil
	case LatestSearchQuery:
		h := HandiworkSearchQuery{
			Category:         q.Category,
			Keywords:         q.Keywords,
			Creator:          q.Creator,
			IncludedTags:     cloneStrings(q.IncludedTags),
			ExcludedTags:     cloneStrings(q.ExcludedTags),
			IncludedPrefixes: cloneStrings(q.IncludedPrefixes),
			ExcludedPrefixes: cloneStrings(q.ExcludedPrefixes),
			Order:            fallbackOrder(q.Order, handiworkOrders),
			Page:             q.Page,
		}
		if q.Date > 0 {
			h.NewerThan = now.AddDate(0, 0, -q.Date)
		}
		return h, nil
	case ThreadSearchQuery:
		if q.OnlyTitles {
			return HandiworkSearchQuery{}, notRepresentable(KindThread, KindHandiwork, "only titles")
		}
		return HandiworkSearchQuery{
			Category:         q.Category,
			Keywords:         q.Keywords,
			IncludedTags:     cloneStrings(q.IncludedTags),
			ExcludedTags:     cloneStrings(q.ExcludedTags),
			IncludedPrefixes: cloneStrings(q.IncludedPrefixes),
			NewerThan:        q.NewerThan,
			OlderThan:        q.OlderThan,
			MinimumReplies:   q.MinimumReplies,
			Order:            fallbackOrder(q.Order, handiworkOrders),
			Page:             q.Page,
		}, nil
	}
	return HandiworkSearchQuery{}, core.Errorf(core.PARAMETER_ERROR, "unknown query type %T", q)
}

// dateWindow returns the narrowest latest updates window that still
// contains `newerThan`.
func dateWindow(newerThan, now time.Time) (int, error) {
	if newerThan.IsZero() {
		return 0, nil
	}
	days := int(math.Ceil(now.Sub(newerThan).Hours() / 24))
	for _, window := range LatestDateWindows {
		if window > 0 && days <= window {
			return window, nil
		}
	}
	return 0, core.Errorf(core.PARAMETER_ERROR,
		"cannot cast to latest: newer than %s is outside of the widest window (%d days)",
		newerThan.Format(searchDateLayout), LatestDateWindows[len(LatestDateWindows)-1])
}

func toLatest(h HandiworkSearchQuery, now time.Time) (LatestSearchQuery, error) {
	switch {
	case !h.OlderThan.IsZero():
		return LatestSearchQuery{}, notRepresentable(KindHandiwork, KindLatest, "older than")
	case h.MinimumReplies > 0:
		return LatestSearchQuery{}, notRepresentable(KindHandiwork, KindLatest, "minimum replies")
	case len(h.IncludedTags) > MaxLatestTags:
		return LatestSearchQuery{}, notRepresentable(KindHandiwork, KindLatest, "more than 5 included tags")
	}

	date, err := dateWindow(h.NewerThan, now)
	if err != nil {
		return LatestSearchQuery{}, err
	}
	return LatestSearchQuery{
		Category:         h.Category,
		Keywords:         h.Keywords,
		Creator:          h.Creator,
		IncludedTags:     cloneStrings(h.IncludedTags),
		ExcludedTags:     cloneStrings(h.ExcludedTags),
		IncludedPrefixes: cloneStrings(h.IncludedPrefixes),
		ExcludedPrefixes: cloneStrings(h.ExcludedPrefixes),
		Date:             date,
		Order:            fallbackOrder(h.Order, latestOrders),
		Page:             h.Page,
	}, nil
}

func toThread(h HandiworkSearchQuery) (ThreadSearchQuery, error) {
	switch {
	case h.Creator != "":
		return ThreadSearchQuery{}, notRepresentable(KindHandiwork, KindThread, "creator")
	case len(h.ExcludedPrefixes) > 0:
		return ThreadSearchQuery{}, notRepresentable(KindHandiwork, KindThread, "excluded prefixes")
	}
	return ThreadSearchQuery{
		Category:         h.Category,
		Keywords:         h.Keywords,
		IncludedTags:     cloneStrings(h.IncludedTags),
		ExcludedTags:     cloneStrings(h.ExcludedTags),
		IncludedPrefixes: cloneStrings(h.IncludedPrefixes),
		NewerThan:        h.NewerThan,
		OlderThan:        h.OlderThan,
		MinimumReplies:   h.MinimumReplies,
		Order:            fallbackOrder(h.Order, threadOrders),
		Page:             h.Page,
	}, nil
}
