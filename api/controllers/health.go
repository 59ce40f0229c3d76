package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/pkg/config"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

const (
	envHeader         = "X-Shopsense-Env"
	readinessTimeout  = 2 * time.Second
	readinessStatusOK = "ok"
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency concurrently. Any failure
// answers 503 with the per-dependency status in the error details.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			status = make(map[string]string, len(checks))
			failed bool
		)
		g, gctx := errgroup.WithContext(ctx)
		for name, pinger := range checks {
			name, pinger := name, pinger
			g.Go(func() error {
				result := readinessStatusOK
				if err := pinger.Ping(gctx); err != nil {
					result = err.Error()
				}
				mu.Lock()
				defer mu.Unlock()
				status[name] = result
				if result != readinessStatusOK {
					failed = true
				}
				return nil
			})
		}
		_ = g.Wait()

		if failed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
