package library

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"f95api/internal/chrono"
	"f95api/lib/platforms/f95zone/scrape"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var ErrNotTracked = errors.New("handiwork is not tracked")

// Entry is a tracked handiwork as it was when it was last checked.
type Entry struct {
	ThreadID   int
	Url        string
	Name       string
	Version    string
	LastUpdate time.Time
	CheckedAt  time.Time
	HasUpdate  bool
}

// Handiwork returns the fields of the entry used to look for updates.
func (e Entry) Handiwork() scrape.Handiwork {
	return scrape.Handiwork{
		Thread: scrape.Thread{
			ID:  e.ThreadID,
			Url: e.Url,
		},
		Name:             e.Name,
		Version:          e.Version,
		LastThreadUpdate: e.LastUpdate,
	}
}

// Library is the local list of handiworks the user follows.
type Library struct {
	db   *sql.DB
	time chrono.TimeAPI
}

// Open opens (creating it if needed) the library at `path`, ":memory:"
// keeps it in memory.
func Open(path string, clock chrono.TimeAPI) (*Library, error) {
	if clock == nil {
		clock = chrono.NewStandardTime()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	// every connection to ":memory:" is a different database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create library schema: %w", err)
	}
	return &Library{db: db, time: clock}, nil
}

func (l *Library) Close() error {
	return l.db.Close()
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}

// Track adds `hw` to the library or replaces the stored version of it.
func (l *Library) Track(ctx context.Context, hw scrape.Handiwork) error {
	if hw.ID == 0 || hw.Url == "" {
		return fmt.Errorf("track %q: handiwork has no thread id or url", hw.Name)
	}
	_, err := l.db.ExecContext(ctx, `
		insert into tracked (thread_id, url, name, version, last_update, checked_at, has_update)
		values (?, ?, ?, ?, ?, ?, 0)
		on conflict(thread_id) do update set
			url = excluded.url,
			name = excluded.name,
			version = excluded.version,
			last_update = excluded.last_update,
			checked_at = excluded.checked_at,
			has_update = 0`,
		hw.ID,
		hw.Url,
		hw.Name,
		hw.Version,
		unix(hw.LastThreadUpdate),
		unix(l.time.Now()),
	)
	if err != nil {
		return fmt.Errorf("track %d: %w", hw.ID, err)
	}
	return nil
}

func (l *Library) Untrack(ctx context.Context, threadId int) error {
	res, err := l.db.ExecContext(ctx, `delete from tracked where thread_id = ?`, threadId)
	if err != nil {
		return fmt.Errorf("untrack %d: %w", threadId, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("untrack %d: %w", threadId, err)
	}
	if count == 0 {
		return fmt.Errorf("untrack %d: %w", threadId, ErrNotTracked)
	}
	return nil
}

const selectEntry = `select thread_id, url, name, version, last_update, checked_at, has_update from tracked`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var entry Entry
	var lastUpdate, checkedAt int64
	err := row.Scan(
		&entry.ThreadID,
		&entry.Url,
		&entry.Name,
		&entry.Version,
		&lastUpdate,
		&checkedAt,
		&entry.HasUpdate,
	)
	if err != nil {
		return Entry{}, err
	}
	entry.LastUpdate = fromUnix(lastUpdate)
	entry.CheckedAt = fromUnix(checkedAt)
	return entry, nil
}

func (l *Library) Get(ctx context.Context, threadId int) (Entry, error) {
	row := l.db.QueryRowContext(ctx, selectEntry+` where thread_id = ?`, threadId)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("get %d: %w", threadId, ErrNotTracked)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get %d: %w", threadId, err)
	}
	return entry, nil
}

// List returns every tracked handiwork ordered by name.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, selectEntry+` order by name collate nocase, thread_id`)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list library: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkChecked records the result of an update check.
func (l *Library) MarkChecked(ctx context.Context, threadId int, hasUpdate bool) error {
	res, err := l.db.ExecContext(ctx,
		`update tracked set checked_at = ?, has_update = ? where thread_id = ?`,
		unix(l.time.Now()), hasUpdate, threadId,
	)
	if err != nil {
		return fmt.Errorf("mark %d checked: %w", threadId, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark %d checked: %w", threadId, err)
	}
	if count == 0 {
		return fmt.Errorf("mark %d checked: %w", threadId, ErrNotTracked)
	}
	return nil
}
