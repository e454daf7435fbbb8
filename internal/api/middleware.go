package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/infra/metrics"
)

const maxUserIDLen = 128

// identify resolves the caller from the X-User-ID header, or the configured
// default user, and makes sure the profile exists.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := domain.UserID(strings.TrimSpace(r.Header.Get(UserHeader)))
		username := string(uid)
		if uid == "" {
			uid = s.cfg.DefaultUser
			username = s.cfg.DefaultUsername
		}
		if len(uid) > maxUserIDLen {
			s.fail(w, r, domain.Validation(UserHeader, "must be at most %d characters", maxUserIDLen))
			return
		}

		if _, err := s.engage.EnsureUser(r.Context(), uid, username); err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithUser(r.Context(), uid)))
	})
}

// instrument logs every request and records the HTTP metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPLatency.WithLabelValues(route).Observe(elapsed.Seconds())

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// userFrom returns the identity set by identify.
func userFrom(r *http.Request) domain.UserID {
	uid, _ := domain.UserFromContext(r.Context())
	return uid
}
