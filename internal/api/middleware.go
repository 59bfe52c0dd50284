package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openlaptop/viewer/internal/performance"
)

// RequestLogger logs one line per request
func RequestLogger(log *zap.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := performance.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.Status),
				zap.Int("bytes", rec.Bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("client", getClientIP(r, trustProxy)),
			}
			switch {
			case rec.Status >= http.StatusInternalServerError:
				log.Error("HTTP request", fields...)
			case rec.Status >= http.StatusBadRequest:
				log.Warn("HTTP request", fields...)
			default:
				log.Info("HTTP request", fields...)
			}
		})
	}
}

// routeName groups request paths into a bounded set of metric names
func routeName(r *http.Request) string {
	p := r.URL.Path
	switch {
	case strings.HasPrefix(p, "/models/"):
		p = "/models/*"
	case strings.HasPrefix(p, "/api/"), p == "/health", p == "/ws":
	default:
		p = "other"
	}
	return r.Method + " " + p
}

// chain applies middlewares so that the first one listed runs first
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
