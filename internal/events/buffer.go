package events

import (
	"context"
	"encoding/json"
	"time"
)

type listStore interface {
	PushCapped(ctx context.Context, key string, value any, max int64, ttl time.Duration) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	RecentEventsKey(identity string) string
}

// Buffer is the capped Redis list of an identity's latest events.
type Buffer struct {
	store listStore
	size  int64
	ttl   time.Duration
}

// NewBuffer keeps at most size entries per identity, expiring after ttl idle.
func NewBuffer(store listStore, size int, ttl time.Duration) *Buffer {
	if size <= 0 {
		size = 20
	}
	return &Buffer{store: store, size: int64(size), ttl: ttl}
}

// Push prepends the event.
func (b *Buffer) Push(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.store.PushCapped(ctx, b.store.RecentEventsKey(event.Identity), payload, b.size, b.ttl)
}

// Recent returns up to n buffered events, newest first. Undecodable entries
// are skipped.
func (b *Buffer) Recent(ctx context.Context, identity string, n int) ([]Event, error) {
	if n <= 0 || int64(n) > b.size {
		n = int(b.size)
	}
	raw, err := b.store.ListRange(ctx, b.store.RecentEventsKey(identity), 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raw))
	for _, entry := range raw {
		var event Event
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}
