package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/andinosoft/contracting/internal/handlers"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// identity resolves the acting user and tenant from request headers and puts
// them on the context. Upstream infrastructure terminates authentication;
// this service trusts the forwarded identity headers.
func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if v := r.Header.Get("X-Actor-ID"); v != "" {
			if id, err := strconv.ParseUint(v, 10, 32); err == nil {
				ctx = handlers.WithActorID(ctx, uint(id))
			}
		}
		if v := r.Header.Get("X-Tenant-ID"); v != "" {
			if id, err := strconv.ParseUint(v, 10, 32); err == nil {
				ctx = handlers.WithTenantID(ctx, uint(id))
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
