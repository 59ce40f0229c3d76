package events

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopsense/storefront-backend/pkg/db/models"
)

// SQLStore keeps events in the events table when no Mongo URI is configured.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore binds the store to a gorm handle.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Append inserts a row.
func (s *SQLStore) Append(ctx context.Context, event *Event) error {
	row := &models.Event{
		Identity:  event.Identity,
		EventType: event.EventType,
		ProductID: event.ProductID,
		CreatedAt: event.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// Recent reads the identity's newest rows.
func (s *SQLStore) Recent(ctx context.Context, identity string, n int) ([]Event, error) {
	var rows []models.Event
	err := s.db.WithContext(ctx).
		Where("identity = ?", identity).
		Order("created_at DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, Event{
			Identity:  row.Identity,
			EventType: row.EventType,
			ProductID: row.ProductID,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
