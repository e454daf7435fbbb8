package coach

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/infra/metrics"
)

// Canned advice used when a coach cannot answer in time.
const (
	FallbackCoaching   = "Keep up the great work! Focus on consistency and you'll reach your goals."
	FallbackSuggestion = "Start with your most challenging topic today. Consistency is key!"
)

// Default call budgets.
const (
	DefaultAnalyzeTimeout    = 30 * time.Second
	DefaultSuggestionTimeout = 20 * time.Second
)

const (
	opAnalyze    = "analyze"
	opSuggestion = "daily_suggestion"
)

// Checker is implemented by backends that can report their readiness.
type Checker interface {
	Check(ctx context.Context) error
}

// Config bounds coach calls.
type Config struct {
	AnalyzeTimeout    time.Duration
	SuggestionTimeout time.Duration
	Logger            *log.Logger
}

// Service wraps a backend with timeouts, fallbacks and telemetry. Its
// methods never fail: a broken or slow coach yields canned advice.
type Service struct {
	backend domain.Coach
	name    string
	cfg     Config
	logger  *log.Logger
}

// NewService creates a coach service around backend. name labels logs.
func NewService(backend domain.Coach, name string, cfg Config) *Service {
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = DefaultAnalyzeTimeout
	}
	if cfg.SuggestionTimeout <= 0 {
		cfg.SuggestionTimeout = DefaultSuggestionTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{backend: backend, name: name, cfg: cfg, logger: logger}
}

// Backend returns the configured backend's name.
func (s *Service) Backend() string { return s.name }

// Analyze returns the backend's report verbatim, or a fallback report with
// success=false when the backend fails or runs out of time.
func (s *Service) Analyze(ctx context.Context, req domain.CoachRequest) *domain.CoachingReport {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AnalyzeTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.backend.Analyze(ctx, req)
	err = s.settle(ctx, err)
	s.observe(opAnalyze, start, err)

	if err != nil || report == nil {
		if err == nil {
			err = domain.ErrCoachOutput
		}
		return AnalyzeFallback(err)
	}
	if !report.Success && strings.TrimSpace(report.Coaching) == "" {
		report.Coaching = FallbackCoaching
	}
	if report.WeakSubjects == nil {
		report.WeakSubjects = []domain.WeakSubject{}
	}
	return report
}

// DailySuggestion returns the backend's suggestion, or the canned
// suggestion when the backend fails or runs out of time.
func (s *Service) DailySuggestion(ctx context.Context, req domain.CoachRequest) *domain.Suggestion {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SuggestionTimeout)
	defer cancel()

	start := time.Now()
	sug, err := s.backend.DailySuggestion(ctx, req)
	err = s.settle(ctx, err)
	s.observe(opSuggestion, start, err)

	if err != nil || sug == nil || strings.TrimSpace(sug.Suggestion) == "" {
		return SuggestionFallback()
	}
	return sug
}

// Check reports backend readiness for health checks.
func (s *Service) Check(ctx context.Context) error {
	if c, ok := s.backend.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// settle maps a deadline hit into ErrCoachTimeout.
func (s *Service) settle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrCoachTimeout) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrCoachTimeout
	}
	return err
}

func (s *Service) observe(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	metrics.CoachLatency.WithLabelValues(op).Observe(elapsed.Seconds())

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCoachTimeout):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	metrics.CoachRequests.WithLabelValues(op, outcome).Inc()

	if err != nil {
		s.logger.Warn("coach failed, using fallback", "backend", s.name, "op", op, "elapsed", elapsed, "err", err)
		return
	}
	s.logger.Debug("coach answered", "backend", s.name, "op", op, "elapsed", elapsed)
}

// AnalyzeFallback is the report served when no coach answer is available.
func AnalyzeFallback(err error) *domain.CoachingReport {
	msg := "coach unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &domain.CoachingReport{
		Success:      false,
		Error:        msg,
		Coaching:     FallbackCoaching,
		WeakSubjects: []domain.WeakSubject{},
	}
}

// SuggestionFallback is the suggestion served when no coach answer is
// available.
func SuggestionFallback() *domain.Suggestion {
	return &domain.Suggestion{Success: true, Suggestion: FallbackSuggestion}
}
