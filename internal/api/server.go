// Package api provides the HTTP server for learnquest: the JSON endpoints
// under /api, the health probe and the Prometheus exposition.
package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learnquest/learnquest/internal/app/coach"
	"github.com/learnquest/learnquest/internal/app/engagement"
	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/health"
)

// UserHeader carries the caller's identity.
const UserHeader = "X-User-ID"

// DefaultRequestTimeout bounds a request when Config leaves it unset. It
// sits above the coach's analyze budget.
const DefaultRequestTimeout = 60 * time.Second

// Config controls the router.
type Config struct {
	DefaultUser     domain.UserID
	DefaultUsername string
	CORSOrigins     []string // "*" allows any origin
	RequestTimeout  time.Duration
	Metrics         bool
	Version         string
	Logger          *log.Logger
}

// Server is the learnquest HTTP API server.
type Server struct {
	engage  *engagement.Service
	coach   *coach.Service
	checker *health.Checker
	cfg     Config
	logger  *log.Logger
}

// NewServer creates a new API server. checker may be nil.
func NewServer(engage *engagement.Service, coachSvc *coach.Service, checker *health.Checker, cfg Config) *Server {
	if cfg.DefaultUser == "" {
		cfg.DefaultUser = "user_default"
	}
	if cfg.DefaultUsername == "" {
		cfg.DefaultUsername = "learner"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{engage: engage, coach: coachSvc, checker: checker, cfg: cfg, logger: logger}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(s.cors)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"version": s.cfg.Version,
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.identify)

			r.Get("/", s.handleDashboard)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/analytics", s.handleAnalytics)

			r.Get("/learning-plan", s.handleLearningPlan)
			r.Put("/learning-plan", s.handleEditTask)
			r.Delete("/learning-plan", s.handleDeleteTask)
			r.Post("/add-task", s.handleAddTask)
			r.Post("/update-task", s.handleUpdateTask)

			r.Post("/log-study", s.handleLogStudy)

			r.Get("/ai-coach", s.handleCoach)
			r.Get("/daily-suggestion", s.handleDailySuggestion)
		})
	})

	// Prometheus metrics endpoint
	if s.cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// cors adds CORS headers for the configured origins.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+UserHeader)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
