package recommend

import (
	"context"
	"fmt"

	"github.com/shopsense/storefront-backend/internal/events"
	"github.com/shopsense/storefront-backend/internal/identity"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
	"github.com/shopsense/storefront-backend/pkg/recommender"
)

const (
	DefaultK            = 5
	MaxK                = 50
	defaultRecentEvents = 10
	fallbackDependency  = "recommender"
	fallbackTier        = "empty"
)

type recommenderClient interface {
	Recommend(ctx context.Context, userID string, k int, recent []recommender.RecentEvent) (*recommender.Recommendations, error)
}

type recentEvents interface {
	Recent(ctx context.Context, id identity.Identity, n int) ([]events.Event, error)
}

type fallbackCounter interface {
	IncFallback(dependency, tier string)
}

// Result is the recommendation payload. Degraded is set when the
// recommender could not be reached and Results is empty.
type Result struct {
	Results  []recommender.Result `json:"results"`
	Cached   bool                 `json:"cached"`
	Degraded bool                 `json:"degraded"`
}

// Service fetches recommendations for an identity.
type Service interface {
	Recommend(ctx context.Context, id identity.Identity, k int) (*Result, error)
}

// ServiceParams wires the recommendation service. Client may be nil when the
// recommender is not configured; every request is then degraded.
type ServiceParams struct {
	Client       recommenderClient
	Events       recentEvents
	Metrics      fallbackCounter
	Logger       *logger.Logger
	RecentEvents int
}

type service struct {
	client  recommenderClient
	events  recentEvents
	metrics fallbackCounter
	logg    *logger.Logger
	recent  int
}

// NewService builds the recommendation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Events == nil {
		return nil, fmt.Errorf("event reader required")
	}
	recent := params.RecentEvents
	if recent <= 0 {
		recent = defaultRecentEvents
	}
	return &service{
		client:  params.Client,
		events:  params.Events,
		metrics: params.Metrics,
		logg:    params.Logger,
		recent:  recent,
	}, nil
}

// Recommend asks the recommender for k products seeded with the identity's
// latest events. Only a bad k fails; every dependency failure yields an
// empty degraded result.
func (s *service) Recommend(ctx context.Context, id identity.Identity, k int) (*Result, error) {
	if id.ID() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session not established")
	}
	if k == 0 {
		k = DefaultK
	}
	if k < 1 || k > MaxK {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("k must be between 1 and %d", MaxK))
	}
	if s.client == nil {
		return s.degrade(ctx, id, nil), nil
	}

	history, err := s.events.Recent(ctx, id, s.recent)
	if err != nil {
		s.warn(ctx, id, "recommend.events_unavailable", err)
		history = nil
	}
	recent := make([]recommender.RecentEvent, 0, len(history))
	for _, e := range history {
		recent = append(recent, recommender.RecentEvent{ProductID: e.ProductID, EventType: e.EventType.String()})
	}

	recs, err := s.client.Recommend(ctx, id.String(), k, recent)
	if err != nil {
		return s.degrade(ctx, id, err), nil
	}
	return &Result{Results: recs.Results, Cached: recs.Cached}, nil
}

func (s *service) degrade(ctx context.Context, id identity.Identity, err error) *Result {
	if s.metrics != nil {
		s.metrics.IncFallback(fallbackDependency, fallbackTier)
	}
	if err != nil {
		s.warn(ctx, id, "recommend.degraded", err)
	}
	return &Result{Results: []recommender.Result{}, Degraded: true}
}

func (s *service) warn(ctx context.Context, id identity.Identity, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"identity": id.String(),
		"error":    err.Error(),
	}), msg)
}
