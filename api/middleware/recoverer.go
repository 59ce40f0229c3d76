package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopsense/storefront-backend/api/responses"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 INTERNAL_ERROR. Aborted
// handlers (http.ErrAbortHandler) are re-panicked so net/http drops the
// connection as intended.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				cause := fmt.Errorf("panic: %v", v)
				ctx := r.Context()
				if logg != nil {
					// Error attaches the stack of this goroutine, which still
					// includes the panicking frames.
					logg.Error(logg.WithField(ctx, "panic", fmt.Sprint(v)), "request.panic", cause)
				}
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
