package query

import (
	"context"
	"net/http"
	"testing"
	"time"

	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/platform"
	"f95api/lib/testutil"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

func testEnv() Env {
	return Env{
		Token: "token",
		Platform: &platform.Data{
			Engines:  map[int]string{2: "RPGM", 7: "Ren'Py"},
			Statuses: map[int]string{18: "Completed"},
			Tags:     map[int]string{45: "3d game", 103: "corruption", 130: "female protagonist"},
			Others:   map[int]string{13: "VN"},
		},
		Time: chrono.NewFrozenTime(now),
	}
}

func TestPageBelowMinimumIsInvalid(t *testing.T) {
	queries := []func(page int) Query{
		func(page int) Query {
			q := NewLatestSearchQuery()
			q.Page = page
			return q
		},
		func(page int) Query {
			q := NewThreadSearchQuery()
			q.Page = page
			q.Keywords = "anything"
			return q
		},
		func(page int) Query {
			q := NewHandiworkSearchQuery()
			q.Page = page
			q.IncludedTags = []string{"corruption"}
			return q
		},
	}

	for _, makeQuery := range queries {
		for _, page := range []int{MinPage - 1, -1, -100} {
			q := makeQuery(page)
			require.False(t, IsValid(q), "%s page %d", q.Kind(), page)
			require.ErrorIs(t, q.Validate(), core.ErrParameter)
		}
		require.True(t, IsValid(makeQuery(MinPage)))
	}
}

func TestLatestValidate(t *testing.T) {
	table := []struct {
		name   string
		modify func(q *LatestSearchQuery)
		valid  bool
	}{
		{name: "defaults", modify: func(q *LatestSearchQuery) {}, valid: true},
		{name: "five tags", modify: func(q *LatestSearchQuery) {
			q.IncludedTags = []string{"a", "b", "c", "d", "e"}
		}, valid: true},
		{name: "six tags", modify: func(q *LatestSearchQuery) {
			q.IncludedTags = []string{"a", "b", "c", "d", "e", "f"}
		}},
		{name: "date window", modify: func(q *LatestSearchQuery) { q.Date = 14 }, valid: true},
		{name: "odd date", modify: func(q *LatestSearchQuery) { q.Date = 5 }},
		{name: "thread order", modify: func(q *LatestSearchQuery) { q.Order = OrderReplies }},
		{name: "unknown category", modify: func(q *LatestSearchQuery) { q.Category = "videos" }},
		{name: "tag included and excluded", modify: func(q *LatestSearchQuery) {
			q.IncludedTags = []string{"Corruption"}
			q.ExcludedTags = []string{"corruption"}
		}},
		{name: "prefix included and excluded", modify: func(q *LatestSearchQuery) {
			q.IncludedPrefixes = []string{"VN"}
			q.ExcludedPrefixes = []string{"VN"}
		}},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			q := NewLatestSearchQuery()
			row.modify(&q)
			require.Equal(t, row.valid, IsValid(q))
		})
	}
}

func TestThreadValidate(t *testing.T) {
	table := []struct {
		name   string
		modify func(q *ThreadSearchQuery)
		valid  bool
	}{
		{name: "defaults", modify: func(q *ThreadSearchQuery) {}, valid: true},
		{name: "negative replies", modify: func(q *ThreadSearchQuery) { q.MinimumReplies = -1 }},
		{name: "date range", modify: func(q *ThreadSearchQuery) {
			q.NewerThan = now.AddDate(0, -1, 0)
			q.OlderThan = now
		}, valid: true},
		{name: "inverted date range", modify: func(q *ThreadSearchQuery) {
			q.NewerThan = now
			q.OlderThan = now.AddDate(0, -1, 0)
		}},
		{name: "latest order", modify: func(q *ThreadSearchQuery) { q.Order = OrderViews }},
		{name: "six excluded tags", modify: func(q *ThreadSearchQuery) {
			q.ExcludedTags = []string{"a", "b", "c", "d", "e", "f"}
		}},
		{name: "many included tags", modify: func(q *ThreadSearchQuery) {
			q.IncludedTags = []string{"a", "b", "c", "d", "e", "f", "g"}
		}, valid: true},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			q := NewThreadSearchQuery()
			row.modify(&q)
			require.Equal(t, row.valid, IsValid(q))
		})
	}
}

func TestLatestBuild(t *testing.T) {
	q := NewLatestSearchQuery()
	q.Keywords = "sandbox"
	q.IncludedTags = []string{"Corruption", "3d game"}
	q.ExcludedTags = []string{"female protagonist"}
	q.IncludedPrefixes = []string{"ren'py"}
	q.ExcludedPrefixes = []string{"Completed"}
	q.Date = 7
	q.Order = OrderLikes
	q.Page = 3

	req, err := q.Build(testEnv())
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, core.PathLatestData, req.Endpoint)
	require.Nil(t, req.Form)

	require.Equal(t, "list", req.Query.Get("cmd"))
	require.Equal(t, "games", req.Query.Get("cat"))
	require.Equal(t, "3", req.Query.Get("page"))
	require.Equal(t, "likes", req.Query.Get("sort"))
	require.Equal(t, "90", req.Query.Get("rows"))
	require.Equal(t, "sandbox", req.Query.Get("search"))
	require.Equal(t, "7", req.Query.Get("date"))
	require.Equal(t, []string{"103", "45"}, req.Query["tags[]"])
	require.Equal(t, []string{"130"}, req.Query["notags[]"])
	require.Equal(t, []string{"7"}, req.Query["prefixes[]"])
	require.Equal(t, []string{"18"}, req.Query["noprefixes[]"])

	again, err := q.Build(testEnv())
	require.NoError(t, err)
	require.Equal(t, req, again)
}

func TestLatestBuildErrors(t *testing.T) {
	q := NewLatestSearchQuery()
	q.IncludedTags = []string{"corruption"}

	_, err := q.Build(Env{})
	require.ErrorIs(t, err, core.ErrParameter)

	q.IncludedTags = []string{"corruptoin"}
	_, err = q.Build(testEnv())
	require.ErrorIs(t, err, core.ErrParameter)
	require.Contains(t, err.Error(), "corruption")
}

func TestThreadBuild(t *testing.T) {
	q := NewThreadSearchQuery()
	q.Category = CategoryComics
	q.Keywords = "office"
	q.IncludedTags = []string{"corruption", "3d game"}
	q.ExcludedTags = []string{"female protagonist"}
	q.IncludedPrefixes = []string{"VN"}
	q.NewerThan = time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC)
	q.OlderThan = time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC)
	q.OnlyTitles = true
	q.Order = OrderReplies
	q.MinimumReplies = 10
	q.Page = 2

	req, err := q.Build(testEnv())
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, core.PathSearch, req.Endpoint)

	form := req.Form
	require.Equal(t, "token", form.Get("_xfToken"))
	require.Equal(t, "office", form.Get("keywords"))
	require.Equal(t, "40", form.Get("c[nodes][]"))
	require.Equal(t, "1", form.Get("c[title_only]"))
	require.Equal(t, "2023-01-02", form.Get("c[newer_than]"))
	require.Equal(t, "2024-02-03", form.Get("c[older_than]"))
	require.Equal(t, "10", form.Get("c[min_reply_count]"))
	require.Equal(t, "corruption,3d game", form.Get("c[tags]"))
	require.Equal(t, "female protagonist", form.Get("c[excludeTags]"))
	require.Equal(t, []string{"13"}, form["c[prefixes][]"])
	require.Equal(t, "replies", form.Get("o"))
	require.Equal(t, "2", form.Get("page"))
}

func TestThreadBuildRequiresToken(t *testing.T) {
	q := NewThreadSearchQuery()
	_, err := q.Build(Env{})
	require.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestSelectSearchType(t *testing.T) {
	table := []struct {
		name   string
		modify func(q *HandiworkSearchQuery)
		kind   Kind
	}{
		{name: "defaults", modify: func(q *HandiworkSearchQuery) {}, kind: KindLatest},
		{name: "keywords by date", modify: func(q *HandiworkSearchQuery) { q.Keywords = "farm" }, kind: KindLatest},
		{name: "keywords by relevance", modify: func(q *HandiworkSearchQuery) {
			q.Keywords = "farm"
			q.Order = OrderRelevance
		}, kind: KindThread},
		{name: "six tags", modify: func(q *HandiworkSearchQuery) {
			q.IncludedTags = []string{"a", "b", "c", "d", "e", "f"}
		}, kind: KindThread},
		{name: "older than", modify: func(q *HandiworkSearchQuery) { q.OlderThan = now }, kind: KindThread},
		{name: "minimum replies", modify: func(q *HandiworkSearchQuery) { q.MinimumReplies = 5 }, kind: KindThread},
		{name: "newer than", modify: func(q *HandiworkSearchQuery) { q.NewerThan = now.AddDate(0, 0, -3) }, kind: KindLatest},
		{name: "newer than 300 days", modify: func(q *HandiworkSearchQuery) { q.NewerThan = now.AddDate(0, 0, -300) }, kind: KindLatest},
		{name: "newer than two years", modify: func(q *HandiworkSearchQuery) { q.NewerThan = now.AddDate(-2, 0, 0) }, kind: KindThread},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			q := NewHandiworkSearchQuery()
			row.modify(&q)
			require.Equal(t, row.kind, q.SelectSearchTypeAt(now))
		})
	}
}

func TestHandiworkOutsideLatestWindow(t *testing.T) {
	q := NewHandiworkSearchQuery()
	q.NewerThan = now.AddDate(-2, 0, 0)
	require.NoError(t, q.Validate())

	req, err := q.Build(testEnv())
	require.NoError(t, err)
	require.Equal(t, core.PathSearch, req.Endpoint)
	require.Equal(t, q.NewerThan.Format(searchDateLayout), req.Form.Get("c[newer_than]"))
}

func TestHandiworkValidateConflicts(t *testing.T) {
	q := NewHandiworkSearchQuery()
	q.Creator = "someone"
	require.True(t, IsValid(q))

	q.MinimumReplies = 3
	require.ErrorIs(t, q.Validate(), core.ErrParameter)

	q = NewHandiworkSearchQuery()
	q.ExcludedPrefixes = []string{"VN"}
	q.OlderThan = now
	require.ErrorIs(t, q.Validate(), core.ErrParameter)
}

func TestHandiworkOrderFallback(t *testing.T) {
	t.Run("likes on thread search", func(t *testing.T) {
		q := NewHandiworkSearchQuery()
		q.Order = OrderLikes
		q.OlderThan = now
		require.Equal(t, KindThread, q.SelectSearchTypeAt(now))

		req, err := q.Build(testEnv())
		require.NoError(t, err)
		require.Equal(t, core.PathSearch, req.Endpoint)
		require.Equal(t, "replies", req.Form.Get("o"))
	})

	t.Run("replies on latest search", func(t *testing.T) {
		q := NewHandiworkSearchQuery()
		q.Order = OrderReplies
		require.Equal(t, KindLatest, q.SelectSearchTypeAt(now))

		req, err := q.Build(testEnv())
		require.NoError(t, err)
		require.Equal(t, core.PathLatestData, req.Endpoint)
		require.Equal(t, "views", req.Query.Get("sort"))
	})

	t.Run("likes on latest search", func(t *testing.T) {
		q := NewHandiworkSearchQuery()
		q.Order = OrderLikes

		req, err := q.Build(testEnv())
		require.NoError(t, err)
		require.Equal(t, "likes", req.Query.Get("sort"))
	})
}

func TestCast(t *testing.T) {
	clock := chrono.NewFrozenTime(now)

	t.Run("handiwork to latest", func(t *testing.T) {
		q := NewHandiworkSearchQuery()
		q.Keywords = "farm"
		q.Creator = "dev"
		q.NewerThan = now.AddDate(0, 0, -5)
		q.IncludedTags = []string{"corruption"}

		casted, err := Cast(q, KindLatest, clock)
		require.NoError(t, err)
		latest, ok := casted.(LatestSearchQuery)
		require.True(t, ok)
		require.Equal(t, 7, latest.Date)
		require.Equal(t, "dev", latest.Creator)
		require.Equal(t, []string{"corruption"}, latest.IncludedTags)
		require.True(t, IsValid(latest))
	})

	t.Run("handiwork to latest not representable", func(t *testing.T) {
		q := NewHandiworkSearchQuery()
		q.MinimumReplies = 4
		_, err := Cast(q, KindLatest, clock)
		require.ErrorIs(t, err, core.ErrParameter)

		q = NewHandiworkSearchQuery()
		q.NewerThan = now.AddDate(-2, 0, 0)
		_, err = Cast(q, KindLatest, clock)
		require.ErrorIs(t, err, core.ErrParameter)
	})

	t.Run("latest to thread", func(t *testing.T) {
		q := NewLatestSearchQuery()
		q.Date = 30
		q.Order = OrderViews
		q.Page = 4

		casted, err := Cast(q, KindThread, clock)
		require.NoError(t, err)
		thread := casted.(ThreadSearchQuery)
		require.Equal(t, now.AddDate(0, 0, -30), thread.NewerThan)
		require.Equal(t, OrderReplies, thread.Order)
		require.Equal(t, 4, thread.Page)
	})

	t.Run("latest with creator to thread", func(t *testing.T) {
		q := NewLatestSearchQuery()
		q.Creator = "dev"
		_, err := Cast(q, KindThread, clock)
		require.ErrorIs(t, err, core.ErrParameter)
	})

	t.Run("thread to latest", func(t *testing.T) {
		q := NewThreadSearchQuery()
		q.Order = OrderLastUpdate
		casted, err := Cast(q, KindLatest, clock)
		require.NoError(t, err)
		require.Equal(t, OrderDate, casted.(LatestSearchQuery).Order)

		q.OnlyTitles = true
		_, err = Cast(q, KindLatest, clock)
		require.ErrorIs(t, err, core.ErrParameter)
	})

	t.Run("same kind", func(t *testing.T) {
		q := NewThreadSearchQuery()
		q.Keywords = "same"
		casted, err := Cast(q, KindThread, clock)
		require.NoError(t, err)
		require.Equal(t, q, casted)
	})
}

func TestExecute(t *testing.T) {
	forum := testutil.NewForum(t)
	forum.Mux.HandleFunc("GET /sam/latest_alpha/latest_data.php", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2", r.URL.Query().Get("page"))
		testutil.WriteJSON(w, map[string]any{"status": "ok"})
	})
	client := forum.Client(t, nil)

	q := NewLatestSearchQuery()
	q.Page = 2
	page, err := Execute(context.Background(), client, q, testEnv())
	require.NoError(t, err)
	require.True(t, page.IsJSON())

	q.Page = 0
	_, err = Execute(context.Background(), client, q, testEnv())
	require.ErrorIs(t, err, core.ErrParameter)
	require.Equal(t, int64(1), forum.Requests())
}
