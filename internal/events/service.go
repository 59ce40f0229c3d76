package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopsense/storefront-backend/internal/identity"
	"github.com/shopsense/storefront-backend/pkg/enums"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

const (
	// DefaultRecentLimit is how many events GET /api/events returns.
	DefaultRecentLimit = 20
	maxRecentLimit     = 100
)

// LogInput is the POST /api/events payload.
type LogInput struct {
	EventType string `json:"event_type" validate:"required"`
	ProductID string `json:"product_id" validate:"required,max=128"`
}

// Service records and reads behaviour events.
type Service interface {
	Log(ctx context.Context, id identity.Identity, input LogInput) (*Event, error)
	Record(ctx context.Context, id identity.Identity, eventType enums.EventType, productID string) error
	Recent(ctx context.Context, id identity.Identity, n int) ([]Event, error)
}

// ServiceParams wires the event service. Buffer is optional.
type ServiceParams struct {
	Store  Store
	Buffer *Buffer
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	store  Store
	buffer *Buffer
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the event service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("event store required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		store:  params.Store,
		buffer: params.Buffer,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func (s *service) Log(ctx context.Context, id identity.Identity, input LogInput) (*Event, error) {
	eventType, err := enums.ParseEventType(input.EventType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "event_type is invalid")
	}
	return s.append(ctx, id, eventType, input.ProductID)
}

// Record is the in-process entry point used by cart and checkout.
func (s *service) Record(ctx context.Context, id identity.Identity, eventType enums.EventType, productID string) error {
	if !eventType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "event_type is invalid")
	}
	_, err := s.append(ctx, id, eventType, productID)
	return err
}

// Recent prefers the Redis buffer and reads the store when the buffer is
// missing, empty or failing.
func (s *service) Recent(ctx context.Context, id identity.Identity, n int) ([]Event, error) {
	if id.ID() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session not established")
	}
	if n <= 0 {
		n = DefaultRecentLimit
	}
	if n > maxRecentLimit {
		n = maxRecentLimit
	}

	if s.buffer != nil {
		buffered, err := s.buffer.Recent(ctx, id.String(), n)
		switch {
		case err != nil:
			s.warn(ctx, id, "events.buffer_read_failed", err)
		case len(buffered) > 0:
			return buffered, nil
		}
	}

	stored, err := s.store.Recent(ctx, id.String(), n)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read events")
	}
	return stored, nil
}

func (s *service) append(ctx context.Context, id identity.Identity, eventType enums.EventType, productID string) (*Event, error) {
	if id.ID() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session not established")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	event := &Event{
		Identity:  id.String(),
		EventType: eventType,
		ProductID: productID,
		CreatedAt: s.now(),
	}
	if err := s.store.Append(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store event")
	}
	if s.buffer != nil {
		if err := s.buffer.Push(ctx, *event); err != nil {
			s.warn(ctx, id, "events.buffer_push_failed", err)
		}
	}
	return event, nil
}

func (s *service) warn(ctx context.Context, id identity.Identity, msg string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"identity": id.String(),
		"error":    err.Error(),
	})
	s.logg.Warn(logCtx, msg)
}
