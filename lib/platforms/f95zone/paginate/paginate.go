package paginate

import (
	"context"
	"fmt"

	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/query"
	"f95api/lib/telemetry"
)

const report_paginate_collect = "paginate.collect"

// DefaultMaxPages bounds a collection when the server keeps reporting more pages.
const DefaultMaxPages = 100

type Page[T any] struct {
	Items []T
	// TotalPages is the amount of pages reported by the server, a page
	// without it is treated as the last one.
	TotalPages int
}

// PageFunc fetches a single page, pages start at query.MinPage.
type PageFunc[T any] func(ctx context.Context, page int) (Page[T], error)

type Options struct {
	// Start defaults to query.MinPage.
	Start int
	// Limit is the maximum amount of items to collect, it must be at least 1.
	Limit int
	// MaxPages defaults to DefaultMaxPages.
	MaxPages int
	// Telemetry defaults to telemetry.NoopAPI.
	Telemetry telemetry.API
}

// Collect fetches pages until `opts.Limit` items are collected, the page
// reported as the last one was read, a page comes back empty or MaxPages
// pages were fetched.
//
// `ctx` is checked before every page. On failure the items of the pages
// fully read so far are returned together with the error.
func Collect[T any](ctx context.Context, opts Options, fetch PageFunc[T]) ([]T, error) {
	if opts.Limit < 1 {
		return nil, core.Errorf(core.PARAMETER_ERROR, "limit must be at least 1, got %d", opts.Limit)
	}
	if opts.Start < query.MinPage {
		opts.Start = query.MinPage
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.NoopAPI{}
	}

	collected := make([]T, 0, min(opts.Limit, 256))
	for fetched := 0; ; fetched++ {
		if fetched >= opts.MaxPages {
			tel.ReportWarning(report_paginate_collect, "stopped at page ceiling", opts.MaxPages)
			break
		}
		err := ctx.Err()
		if err != nil {
			return collected, err
		}

		page := opts.Start + fetched
		result, err := fetch(ctx, page)
		if err != nil {
			return collected, fmt.Errorf("page %d: %w", page, err)
		}
		if len(result.Items) == 0 {
			break
		}

		remaining := opts.Limit - len(collected)
		if len(result.Items) > remaining {
			result.Items = result.Items[:remaining]
		}
		collected = append(collected, result.Items...)

		if len(collected) >= opts.Limit || page >= result.TotalPages {
			break
		}
	}
	return collected, nil
}

// Map converts the items of every page fetched by `fetch`.
func Map[T, U any](fetch PageFunc[T], convert func(T) U) PageFunc[U] {
	return func(ctx context.Context, page int) (Page[U], error) {
		result, err := fetch(ctx, page)
		if err != nil {
			return Page[U]{}, err
		}
		items := make([]U, len(result.Items))
		for i, item := range result.Items {
			items[i] = convert(item)
		}
		return Page[U]{Items: items, TotalPages: result.TotalPages}, nil
	}
}

// Dedupe drops items already returned by a previous page, listings shift
// while they are being read so the same item can show up twice.
//
// A page whose items were all seen before is returned empty, which ends
// the collection.
func Dedupe[T comparable](fetch PageFunc[T]) PageFunc[T] {
	seen := map[T]bool{}
	return func(ctx context.Context, page int) (Page[T], error) {
		result, err := fetch(ctx, page)
		if err != nil {
			return Page[T]{}, err
		}
		unique := make([]T, 0, len(result.Items))
		for _, item := range result.Items {
			if seen[item] {
				continue
			}
			seen[item] = true
			unique = append(unique, item)
		}
		return Page[T]{Items: unique, TotalPages: result.TotalPages}, nil
	}
}
