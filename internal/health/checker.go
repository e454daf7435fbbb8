// Package health runs periodic readiness checks for the database, the data
// directory and the coach backend.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/learnquest/learnquest/internal/infra/metrics"
)

// DefaultInterval is how often Run repeats the checks.
const DefaultInterval = 60 * time.Second

const checkTimeout = 3 * time.Second

// Pinger is implemented by the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober is implemented by the coach service.
type Prober interface {
	Check(ctx context.Context) error
}

// Check defines a single health check with optional recovery action.
// Advisory checks are reported but do not make the process unhealthy.
type Check struct {
	Name      string
	Advisory  bool
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Advisory  bool      `json:"advisory,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates the standard checks. coach may be nil.
func NewChecker(db Pinger, dataDir string, coach Prober) *Checker {
	checks := []Check{
		{
			Name:    "database",
			CheckFn: db.Ping,
		},
		{
			Name: "data_dir",
			CheckFn: func(ctx context.Context) error {
				return checkDataDir(dataDir)
			},
			RecoverFn: func(ctx context.Context) error {
				return os.MkdirAll(dataDir, 0o755)
			},
		},
	}
	if coach != nil {
		checks = append(checks, Check{
			Name:     "coach",
			Advisory: true,
			CheckFn:  coach.Check,
		})
	}
	return &Checker{interval: DefaultInterval, checks: checks}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh runs every check once and records the results.
func (c *Checker) Refresh(ctx context.Context) []Status {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			Advisory:  check.Advisory,
			CheckedAt: time.Now(),
		}
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check.CheckFn(cctx)
		if err != nil && check.RecoverFn != nil {
			if rerr := check.RecoverFn(cctx); rerr == nil {
				err = check.CheckFn(cctx)
			}
		}
		cancel()

		if err != nil {
			s.Error = err.Error()
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		} else {
			s.Healthy = true
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()

	result := make([]Status, len(statuses))
	copy(result, statuses)
	return result
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if every non-advisory check passed.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Healthy(c.statuses)
}

// Healthy reports whether statuses contain no failed non-advisory check.
func Healthy(statuses []Status) bool {
	for _, s := range statuses {
		if !s.Healthy && !s.Advisory {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", dir)
	}
	return nil
}
