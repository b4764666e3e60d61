package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// principalSlot lets Authenticate, which runs further down the chain, report
// the caller back to Logger.
type principalSlot struct {
	p *Principal
}

const principalSlotKey contextKeyAuth = "principal_slot"

// Logger logs one structured line per request with the matched route and,
// once authenticated, the caller's user id. Client errors are logged at
// WARN and server errors at ERROR.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			slot := &principalSlot{}
			r = r.WithContext(context.WithValue(r.Context(), principalSlotKey, slot))

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, slog.String("route", pattern))
				}
			}
			if p := slot.p; p != nil {
				attrs = append(attrs, slog.String("user_id", p.UserID))
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
