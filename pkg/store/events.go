package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"tourguide/pkg/model"
)

// defaultEventLimit applies when RecentEvents gets a non-positive limit.
const defaultEventLimit = 100

// SaveEvent appends ev to the history. The region is stored by id and name
// only; exit events keep a NULL distance.
func (s *SQLiteStore) SaveEvent(ctx context.Context, sessionID string, ev *model.Event) error {
	var dist sql.NullFloat64
	if !math.IsInf(ev.Distance, 0) && !math.IsNaN(ev.Distance) {
		dist = sql.NullFloat64{Float64: ev.Distance, Valid: true}
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geofence_events (session_id, type, region_id, region_name, distance, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, string(ev.Type), ev.Region.ID, ev.Region.Name, dist, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, type, region_id, region_name, distance, occurred_at
		 FROM geofence_events ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec  EventRecord
			typ  string
			name sql.NullString
			dist sql.NullFloat64
			ms   int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &typ, &rec.Event.Region.ID, &name, &dist, &ms); err != nil {
			return nil, err
		}
		rec.Event.Type = model.EventType(typ)
		rec.Event.Region.Name = name.String
		rec.Event.Distance = math.Inf(1)
		if dist.Valid {
			rec.Event.Distance = dist.Float64
		}
		rec.Event.Timestamp = time.UnixMilli(ms)
		out = append(out, rec)
	}
	return out, rows.Err()
}
