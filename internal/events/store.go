package events

import (
	"context"
	"time"

	"github.com/shopsense/storefront-backend/pkg/enums"
)

// Event is one behaviour signal as stored and served.
type Event struct {
	Identity  string          `json:"identity" bson:"identity"`
	EventType enums.EventType `json:"event_type" bson:"event_type"`
	ProductID string          `json:"product_id" bson:"product_id"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
}

// Store is the durable, append-only event log.
type Store interface {
	Append(ctx context.Context, event *Event) error
	// Recent returns up to n events for identity, newest first.
	Recent(ctx context.Context, identity string, n int) ([]Event, error)
}
