package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxCallerKey struct{}

// caller is filled in by Authenticate further down the chain so the access
// log can name who made the request.
type caller struct {
	principal *Principal
}

func noteCaller(ctx context.Context, p *Principal) {
	if c, ok := ctx.Value(ctxCallerKey{}).(*caller); ok {
		c.principal = p
	}
}

// NewStructuredLogger writes one access line per request. Lines carry the
// matched route, the room being acted on and the authenticated account.
// Auth failures log at warn, 5xx at error.
func NewStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			c := &caller{}
			r = r.WithContext(context.WithValue(r.Context(), ctxCallerKey{}, c))

			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				// ServeMux records the pattern and path values on r itself.
				attrs := []slog.Attr{
					slog.Group("request",
						slog.String("method", r.Method),
						slog.String("route", r.Pattern),
						slog.String("path", r.URL.Path),
						slog.String("remote_addr", r.RemoteAddr),
					),
					slog.Group("response",
						slog.Int("status", status),
						slog.Int("bytes", ww.BytesWritten()),
						slog.Duration("latency", time.Since(start)),
					),
				}
				if id := r.PathValue("id"); id != "" {
					attrs = append(attrs, slog.String("room_id", id))
				}
				if p := c.principal; p != nil {
					attrs = append(attrs, slog.Group("caller",
						slog.String("account_id", p.AccountID.String()),
						slog.String("role", p.Role),
					))
				}

				level, msg := slog.LevelInfo, "request completed"
				switch {
				case status >= 500:
					level, msg = slog.LevelError, "server error"
				case status == http.StatusUnauthorized || status == http.StatusForbidden:
					level, msg = slog.LevelWarn, "request denied"
				}
				logger.LogAttrs(r.Context(), level, msg, attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
