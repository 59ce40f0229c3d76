package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shopsense/storefront-backend/internal/identity"
	"github.com/shopsense/storefront-backend/pkg/cache"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/llm"
	"github.com/shopsense/storefront-backend/pkg/logger"
	"github.com/shopsense/storefront-backend/pkg/recommender"
)

// Explanation sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
	SourceBasic    = "basic"
)

const (
	basicExplanation   = "This product matches your recent interests, brand preferences, and price range."
	defaultCacheTTL    = 12 * time.Hour
	defaultBasicTTL    = time.Hour
	fallbackDependency = "llm"
)

type recommenderClient interface {
	Product(ctx context.Context, productID string) (map[string]any, error)
	SessionSummary(ctx context.Context, sessionID string) (map[string]any, error)
	Explain(ctx context.Context, req recommender.ExplainRequest) (string, error)
}

type keyBuilder interface {
	ExplainKey(identity, productID string) string
}

type fallbackCounter interface {
	IncFallback(dependency, tier string)
}

// Filters are the listing filters the shopper had applied.
type Filters struct {
	Category string
	MinPrice string
	MaxPrice string
}

// Result is the explanation payload.
type Result struct {
	Explanation string `json:"explanation"`
	Cached      bool   `json:"cached"`
	Source      string `json:"source"`
}

type cachedExplanation struct {
	Explanation string `json:"explanation"`
	Source      string `json:"source"`
}

// Service explains why a product was recommended to an identity.
type Service interface {
	Explain(ctx context.Context, id identity.Identity, productID string, filters Filters) (*Result, error)
}

// ServiceParams wires the explanation service. Recommender and LLM are
// optional; a missing tier is skipped.
type ServiceParams struct {
	Cache         cache.Cache
	Keys          keyBuilder
	Recommender   recommenderClient
	LLM           llm.Generator
	Metrics       fallbackCounter
	Logger        *logger.Logger
	CacheTTL      time.Duration
	BasicCacheTTL time.Duration
}

type service struct {
	cache       cache.Cache
	keys        keyBuilder
	recommender recommenderClient
	llm         llm.Generator
	metrics     fallbackCounter
	logg        *logger.Logger
	ttl         time.Duration
	basicTTL    time.Duration
	group       singleflight.Group
}

// NewService builds the explanation service.
func NewService(params ServiceParams) Service {
	c := params.Cache
	if c == nil {
		c = cache.Noop{}
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	basicTTL := params.BasicCacheTTL
	if basicTTL <= 0 {
		basicTTL = defaultBasicTTL
	}
	return &service{
		cache:       c,
		keys:        params.Keys,
		recommender: params.Recommender,
		llm:         params.LLM,
		metrics:     params.Metrics,
		logg:        params.Logger,
		ttl:         ttl,
		basicTTL:    basicTTL,
	}
}

// Explain serves a cached explanation when present, otherwise walks the LLM,
// recommender and template tiers in order. Only validation fails the call.
// Concurrent identical requests share one computation.
func (s *service) Explain(ctx context.Context, id identity.Identity, productID string, filters Filters) (*Result, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if id.ID() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session not established")
	}

	key := s.cacheKey(id, productID)
	var hit cachedExplanation
	err := cache.GetJSON(ctx, s.cache, key, &hit)
	switch {
	case err == nil && hit.Explanation != "":
		return &Result{Explanation: hit.Explanation, Cached: true, Source: hit.Source}, nil
	case err != nil && !errors.Is(err, cache.ErrMiss):
		s.warn(ctx, id, productID, "explain.cache_read_failed", err)
	}

	// The shared generation must not inherit one caller's cancellation; the
	// LLM and recommender clients bound it with their own timeouts.
	shared := context.WithoutCancel(ctx)
	flightKey := strings.Join([]string{key, filters.Category, filters.MinPrice, filters.MaxPrice}, "|")
	v, _, _ := s.group.Do(flightKey, func() (any, error) {
		return s.generate(shared, id, productID, filters, key), nil
	})
	res := *v.(*Result)
	return &res, nil
}

func (s *service) generate(ctx context.Context, id identity.Identity, productID string, filters Filters, key string) *Result {
	if s.llm != nil {
		text, err := s.llm.Generate(ctx, buildPrompt(s.summary(ctx, id), s.product(ctx, productID), filters))
		if err == nil {
			return s.store(ctx, key, text, SourceLLM, s.ttl)
		}
		s.warn(ctx, id, productID, "explain.llm_failed", err)
	}

	if s.recommender != nil {
		text, err := s.recommender.Explain(ctx, recommender.ExplainRequest{
			UserID:         id.String(),
			ProductID:      productID,
			FilterCategory: filters.Category,
			MinPrice:       filters.MinPrice,
			MaxPrice:       filters.MaxPrice,
		})
		if err == nil {
			s.countFallback(SourceFallback)
			return s.store(ctx, key, text, SourceFallback, s.ttl)
		}
		s.warn(ctx, id, productID, "explain.fallback_failed", err)
	}

	s.countFallback(SourceBasic)
	return s.store(ctx, key, basicExplanation, SourceBasic, s.basicTTL)
}

func (s *service) summary(ctx context.Context, id identity.Identity) map[string]any {
	if s.recommender == nil {
		return nil
	}
	doc, err := s.recommender.SessionSummary(ctx, id.String())
	if err != nil {
		s.warn(ctx, id, "", "explain.summary_unavailable", err)
		return nil
	}
	return doc
}

func (s *service) product(ctx context.Context, productID string) map[string]any {
	if s.recommender == nil {
		return map[string]any{"product_id": productID}
	}
	doc, err := s.recommender.Product(ctx, productID)
	if err != nil {
		s.warn(ctx, "", productID, "explain.product_unavailable", err)
		return map[string]any{"product_id": productID}
	}
	return doc
}

func (s *service) store(ctx context.Context, key, text, source string, ttl time.Duration) *Result {
	if err := cache.SetJSON(ctx, s.cache, key, cachedExplanation{Explanation: text, Source: source}, ttl); err != nil {
		s.warn(ctx, "", "", "explain.cache_write_failed", err)
	}
	return &Result{Explanation: text, Source: source}
}

func (s *service) cacheKey(id identity.Identity, productID string) string {
	if s.keys != nil {
		return s.keys.ExplainKey(id.String(), productID)
	}
	return fmt.Sprintf("explain:%s:%s", id.String(), productID)
}

func (s *service) countFallback(tier string) {
	if s.metrics != nil {
		s.metrics.IncFallback(fallbackDependency, tier)
	}
}

func (s *service) warn(ctx context.Context, id identity.Identity, productID, msg string, err error) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{"error": err.Error()}
	if id != "" {
		fields["identity"] = id.String()
	}
	if productID != "" {
		fields["product_id"] = productID
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}
