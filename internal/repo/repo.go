package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"opsdesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = domain.ErrNotFound

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// on picks the transaction when one is given.
func (r Repo) on(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// EventFilters narrows event listings. Zero values match everything.
type EventFilters struct {
	Type       string
	EntityKind string
	EntityID   string
	Limit      int
	Before     int64
}

// LatestEvents returns events newest first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Before > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Before)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE %s ORDER BY id DESC LIMIT ?`, strings.Join(clauses, " AND "))
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryEvents(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// CountBy returns row counts grouped by a column of one table.
func (r Repo) CountBy(ctx context.Context, table, column string) (map[string]int, error) {
	switch table + "." + column {
	case "tasks.status", "ai_decisions.status", "project_requests.status":
	default:
		return nil, fmt.Errorf("count by %s.%s not supported", table, column)
	}
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s, count(*) FROM %s GROUP BY %s`, column, table, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		res[key] = count
	}
	return res, rows.Err()
}
