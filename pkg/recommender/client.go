package recommender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/shopsense/storefront-backend/pkg/config"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("recommender unavailable")

// RecentEvent is the compact event shape the recommender scores against.
type RecentEvent struct {
	ProductID string `json:"product_id"`
	EventType string `json:"event_type"`
}

// Result is one scored recommendation.
type Result struct {
	ProductID string         `json:"product_id"`
	Score     float64        `json:"score"`
	Product   map[string]any `json:"product,omitempty"`
}

// Recommendations is the /recommend response body.
type Recommendations struct {
	Cached  bool     `json:"cached"`
	Results []Result `json:"results"`
}

// ExplainRequest carries the optional filters forwarded to /explain.
type ExplainRequest struct {
	UserID         string
	ProductID      string
	FilterCategory string
	MinPrice       string
	MaxPrice       string
}

// Client calls the recommender microservice through a circuit breaker.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	logg    *logger.Logger
}

// New builds a recommender client from configuration.
func New(cfg config.RecommenderConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("recommender base url is required")
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		logg: logg,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "recommender",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if c.logg == nil {
				return
			}
			ctx := c.logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			c.logg.Warn(ctx, "recommender.breaker_state_changed")
		},
	})
	return c, nil
}

// Recommend asks for k recommendations for userID given its recent events.
func (c *Client) Recommend(ctx context.Context, userID string, k int, recent []RecentEvent) (*Recommendations, error) {
	if recent == nil {
		recent = []RecentEvent{}
	}
	encoded, err := json.Marshal(recent)
	if err != nil {
		return nil, fmt.Errorf("encode recent events: %w", err)
	}

	resp, err := c.get(ctx, "/recommend", map[string]string{
		"user_id":       userID,
		"k":             strconv.Itoa(k),
		"recent_events": string(encoded),
	})
	if err != nil {
		return nil, err
	}

	var out Recommendations
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if out.Results == nil {
		out.Results = []Result{}
	}
	return &out, nil
}

// Product returns the recommender's view of a catalog item.
func (c *Client) Product(ctx context.Context, productID string) (map[string]any, error) {
	return c.getDocument(ctx, "/product/"+url.PathEscape(strings.TrimSpace(productID)))
}

// SessionSummary returns the recommender's summary of a session's behaviour.
func (c *Client) SessionSummary(ctx context.Context, sessionID string) (map[string]any, error) {
	return c.getDocument(ctx, "/session_summary/"+url.PathEscape(strings.TrimSpace(sessionID)))
}

// Explain asks the recommender for its own template explanation. The service
// answers either {"explanation": "..."} or {"explanation": {"text": "..."}}.
func (c *Client) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	params := map[string]string{
		"user_id":    req.UserID,
		"product_id": req.ProductID,
	}
	setIf(params, "filter_category", req.FilterCategory)
	setIf(params, "min_price", req.MinPrice)
	setIf(params, "max_price", req.MaxPrice)

	resp, err := c.get(ctx, "/explain", params)
	if err != nil {
		return "", err
	}

	var body struct {
		Explanation json.RawMessage `json:"explanation"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("decode explanation: %w", err)
	}
	text := explanationText(body.Explanation)
	if text == "" {
		return "", fmt.Errorf("recommender returned an empty explanation")
	}
	return text, nil
}

func (c *Client) getDocument(ctx context.Context, path string) (map[string]any, error) {
	resp, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string) (*resty.Response, error) {
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		req := c.http.R().SetContext(ctx)
		if len(params) > 0 {
			req.SetQueryParams(params)
		}
		resp, err := req.Get(path)
		if err != nil {
			return nil, fmt.Errorf("recommender %s: %w", path, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("recommender %s: unexpected status %d", path, resp.StatusCode())
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, err
}

func explanationText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Text)
	}
	return ""
}

func setIf(params map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		params[key] = v
	}
}
