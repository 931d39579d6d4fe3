// Package querylog records natural-language front-desk queries and how they
// were classified.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Entry is one classified query.
type Entry struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Intent      string    `json:"intent"`
	EntityKeys  []string  `json:"entity_keys"`
	ResultCount int       `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 50

// Store persists entries in Postgres.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record inserts the entry, assigning an ID and timestamp when missing.
// Entity keys are stored sorted so identical queries compare equal.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	keys := append([]string{}, e.EntityKeys...)
	sort.Strings(keys)
	e.EntityKeys = keys

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nlp_query_log (id, query, intent, entity_keys, result_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Query, e.Intent, pq.Array(e.EntityKeys), e.ResultCount, e.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("querylog: insert: %w", err)
	}
	return e, nil
}

// List returns the most recent entries first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, intent, entity_keys, result_count, created_at
		FROM nlp_query_log
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querylog: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Query, &e.Intent, pq.Array(&e.EntityKeys), &e.ResultCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("querylog: scan: %w", err)
		}
		if e.EntityKeys == nil {
			e.EntityKeys = []string{}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querylog: iterate: %w", err)
	}
	return out, nil
}

// CountByIntent tallies logged queries per intent.
func (s *Store) CountByIntent(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT intent, COUNT(*) FROM nlp_query_log GROUP BY intent`)
	if err != nil {
		return nil, fmt.Errorf("querylog: count: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			intent string
			n      int
		)
		if err := rows.Scan(&intent, &n); err != nil {
			return nil, fmt.Errorf("querylog: scan count: %w", err)
		}
		out[intent] = n
	}
	return out, rows.Err()
}
