package recommender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense/storefront-backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, failures uint32) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(config.RecommenderConfig{
		BaseURL:         srv.URL,
		Timeout:         time.Second,
		BreakerFailures: failures,
		BreakerOpenFor:  time.Minute,
	}, nil)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func TestRecommendSendsQueryAndDecodesResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recommend", r.URL.Path)
		assert.Equal(t, "guest:abc", r.URL.Query().Get("user_id"))
		assert.Equal(t, "3", r.URL.Query().Get("k"))

		var recent []RecentEvent
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("recent_events")), &recent))
		assert.Equal(t, []RecentEvent{{ProductID: "p1", EventType: "view"}}, recent)

		writeJSON(w, map[string]any{
			"cached": true,
			"results": []map[string]any{
				{"product_id": "p9", "score": 0.92, "product": map[string]any{"title": "Lamp"}},
			},
		})
	}, 5)

	out, err := client.Recommend(context.Background(), "guest:abc", 3, []RecentEvent{{ProductID: "p1", EventType: "view"}})
	require.NoError(t, err)
	assert.True(t, out.Cached)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "p9", out.Results[0].ProductID)
	assert.InDelta(t, 0.92, out.Results[0].Score, 0.0001)
	assert.Equal(t, "Lamp", out.Results[0].Product["title"])
}

func TestRecommendEncodesEmptyRecentList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "[]", r.URL.Query().Get("recent_events"))
		writeJSON(w, map[string]any{"cached": false})
	}, 5)

	out, err := client.Recommend(context.Background(), "user:1", 5, nil)
	require.NoError(t, err)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}

func TestExplainAcceptsStringAndObjectShapes(t *testing.T) {
	cases := map[string]any{
		"string": map[string]any{"explanation": "  Because you like lamps. "},
		"object": map[string]any{"explanation": map[string]any{"text": "Because you like lamps.", "source": "template"}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/explain", r.URL.Path)
				assert.Equal(t, "p1", r.URL.Query().Get("product_id"))
				assert.Equal(t, "lighting", r.URL.Query().Get("filter_category"))
				assert.False(t, r.URL.Query().Has("min_price"))
				writeJSON(w, body)
			}, 5)

			text, err := client.Explain(context.Background(), ExplainRequest{
				UserID:         "guest:abc",
				ProductID:      "p1",
				FilterCategory: "lighting",
			})
			require.NoError(t, err)
			assert.Equal(t, "Because you like lamps.", text)
		})
	}
}

func TestExplainRejectsEmptyExplanation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"cached": false})
	}, 5)

	_, err := client.Explain(context.Background(), ExplainRequest{UserID: "u", ProductID: "p"})
	require.Error(t, err)
}

func TestProductAndSessionSummaryPaths(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/product/p1":
			writeJSON(w, map[string]any{"product_id": "p1", "brand": "Acme"})
		case "/session_summary/guest:abc":
			writeJSON(w, map[string]any{"session_id": "guest:abc", "recent_events": []any{}})
		default:
			http.NotFound(w, r)
		}
	}, 5)

	product, err := client.Product(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", product["brand"])

	summary, err := client.SessionSummary(context.Background(), "guest:abc")
	require.NoError(t, err)
	assert.Equal(t, "guest:abc", summary["session_id"])
}

func TestErrorStatusIsReturned(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, 5)

	_, err := client.Product(context.Background(), "p1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 2)

	for i := 0; i < 2; i++ {
		_, err := client.Recommend(context.Background(), "guest:a", 5, nil)
		require.Error(t, err)
	}

	_, err := client.Recommend(context.Background(), "guest:a", 5, nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTimeoutSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, map[string]any{"results": []any{}})
	}))
	t.Cleanup(srv.Close)

	client, err := New(config.RecommenderConfig{
		BaseURL: srv.URL,
		Timeout: 20 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = client.Recommend(context.Background(), "guest:a", 5, nil)
	require.Error(t, err)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(config.RecommenderConfig{BaseURL: "  "}, nil)
	require.Error(t, err)
}
