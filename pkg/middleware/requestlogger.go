package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dfgutierrez/sigr-sales/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, operator_id, trace_id, and span_id, then stores it in
// context via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// This middleware should be mounted AFTER RequestLogging (which sets
// correlation_id).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Pick up operator_id from the auth middleware context key or the
			// X-Operator-ID header (used when Auth middleware is not mounted).
			operatorID := OperatorIDFromContext(ctx)
			if operatorID == "" {
				operatorID = r.Header.Get("X-Operator-ID")
			}
			if operatorID != "" {
				ctx = logger.WithOperatorID(ctx, operatorID)
			}

			enriched := logger.WithContext(ctx, base)

			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
