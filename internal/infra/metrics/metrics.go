// Package metrics provides Prometheus metrics for learnquest.
// Counters for study sessions, XP, badges and tasks, plus latency and
// outcome of coach calls, HTTP traffic and health checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "learnquest"

// XP sources.
const (
	SourceSession = "session"
	SourceTask    = "task"
)

// ─── Progression ────────────────────────────────────────────────────────────

// SessionsLogged tracks study sessions committed.
var SessionsLogged = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "sessions_logged_total",
	Help:      "Total study sessions logged.",
})

// StudyMinutes tracks minutes of study logged.
var StudyMinutes = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "study_minutes_total",
	Help:      "Total minutes of study logged.",
})

// XPAwarded tracks XP granted, by source (session, task).
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded.",
}, []string{"source"})

// BadgesUnlocked tracks badge unlocks by badge type.
var BadgesUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "badges_unlocked_total",
	Help:      "Total badges unlocked.",
}, []string{"badge"})

// TasksCompleted tracks plan tasks completed for the first time.
var TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "tasks_completed_total",
	Help:      "Total plan tasks completed.",
})

// ─── Coach ──────────────────────────────────────────────────────────────────

// CoachRequests tracks coach calls by operation and outcome
// (ok, timeout, error, fallback).
var CoachRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "coach_requests_total",
	Help:      "Total coach requests by outcome.",
}, []string{"operation", "outcome"})

// CoachLatency tracks coach call duration in seconds.
var CoachLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "coach_latency_seconds",
	Help:      "Coach request duration in seconds.",
	Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
}, []string{"operation"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests tracks API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "http_requests_total",
	Help:      "Total HTTP requests.",
}, []string{"method", "route", "code"})

// HTTPLatency tracks API request duration in seconds.
var HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "health_check_status",
	Help:      "Health check status (1=healthy, 0=unhealthy).",
}, []string{"check"})
