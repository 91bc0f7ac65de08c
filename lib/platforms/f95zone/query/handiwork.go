package query

import (
	"time"

	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/core"
)

// HandiworkSearchQuery accepts the filters of both searches and picks the
// cheapest endpoint able to serve them, see SelectSearchType.
type HandiworkSearchQuery struct {
	Category         Category
	Keywords         string
	Creator          string
	IncludedTags     []string
	ExcludedTags     []string
	IncludedPrefixes []string
	ExcludedPrefixes []string
	NewerThan        time.Time
	OlderThan        time.Time
	MinimumReplies   int
	Order            Order
	Page             int
}

func NewHandiworkSearchQuery() HandiworkSearchQuery {
	return HandiworkSearchQuery{
		Category: CategoryGames,
		Order:    OrderDate,
		Page:     MinPage,
	}
}

func (q HandiworkSearchQuery) Kind() Kind {
	return KindHandiwork
}

// SelectSearchType is SelectSearchTypeAt the current time.
func (q HandiworkSearchQuery) SelectSearchType() Kind {
	return q.SelectSearchTypeAt(chrono.NewStandardTime().Now())
}

// SelectSearchTypeAt returns KindThread when a filter only the thread search
// understands is set, or when NewerThan lies before the widest latest
// updates window as seen from `now`. It returns KindLatest otherwise.
func (q HandiworkSearchQuery) SelectSearchTypeAt(now time.Time) Kind {
	switch {
	case len(q.IncludedTags) > MaxLatestTags,
		!q.OlderThan.IsZero(),
		q.MinimumReplies > 0,
		q.Keywords != "" && (q.Order == OrderRelevance || q.Order == OrderReplies):
		return KindThread
	}
	_, err := dateWindow(q.NewerThan, now)
	if err != nil {
		return KindThread
	}
	return KindLatest
}

func (q HandiworkSearchQuery) Validate() error {
	err := validatePage(q.Page)
	if err != nil {
		return err
	}
	err = validateCategory(q.Category)
	if err != nil {
		return err
	}
	err = validateOrder(KindHandiwork, q.Order, OrderDate, OrderLikes, OrderRelevance, OrderReplies, OrderTitle, OrderViews)
	if err != nil {
		return err
	}
	if q.MinimumReplies < 0 {
		return core.Errorf(core.PARAMETER_ERROR, "minimum replies cannot be negative, got %d", q.MinimumReplies)
	}
	if !q.NewerThan.IsZero() && !q.OlderThan.IsZero() && q.NewerThan.After(q.OlderThan) {
		return core.Errorf(core.PARAMETER_ERROR, "newer than (%s) is after older than (%s)",
			q.NewerThan.Format(searchDateLayout), q.OlderThan.Format(searchDateLayout))
	}
	err = validateExclusive("tag", q.IncludedTags, q.ExcludedTags)
	if err != nil {
		return err
	}
	err = validateExclusive("prefix", q.IncludedPrefixes, q.ExcludedPrefixes)
	if err != nil {
		return err
	}

	if q.SelectSearchType() == KindThread {
		switch {
		case q.Creator != "":
			return core.Errorf(core.PARAMETER_ERROR, "creator cannot be combined with thread search filters")
		case len(q.ExcludedPrefixes) > 0:
			return core.Errorf(core.PARAMETER_ERROR, "excluded prefixes cannot be combined with thread search filters")
		case len(q.ExcludedTags) > MaxExcludedTags:
			return core.Errorf(core.PARAMETER_ERROR, "thread search accepts at most %d excluded tags, got %d", MaxExcludedTags, len(q.ExcludedTags))
		}
	}
	return nil
}

// Target converts the query into the query of the endpoint that will serve it.
func (q HandiworkSearchQuery) Target(env Env) (Query, error) {
	clock := env.now()
	return Cast(q, q.SelectSearchTypeAt(clock.Now()), clock)
}

func (q HandiworkSearchQuery) Build(env Env) (Request, error) {
	target, err := q.Target(env)
	if err != nil {
		return Request{}, err
	}
	return target.Build(env)
}
