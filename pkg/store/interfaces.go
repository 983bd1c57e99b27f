package store

import (
	"context"

	"tourguide/pkg/model"
)

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	HasCache(ctx context.Context, key string) (bool, error)
	SetCache(ctx context.Context, key string, val []byte) error
	ListCacheKeys(ctx context.Context, prefix string) ([]string, error)
}

// EventRecord is a geofence event as persisted, tagged with its session.
type EventRecord struct {
	ID        int64       `json:"id"`
	SessionID string      `json:"session_id"`
	Event     model.Event `json:"event"`
}

// EventStore keeps the history of emitted geofence events.
type EventStore interface {
	SaveEvent(ctx context.Context, sessionID string, ev *model.Event) error
	// RecentEvents returns up to limit events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]EventRecord, error)
}
