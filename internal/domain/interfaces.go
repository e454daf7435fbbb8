package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Repository is the per-user persistence surface. Implementations must
// behave identically whether bound to a connection pool or a transaction.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u User) (created bool, err error)
	GetUser(ctx context.Context, id UserID) (*User, error) // ErrUserNotFound
	UpdateUserProgress(ctx context.Context, id UserID, xp int64, level int) error
	// LockUser serializes writers for one user until the transaction ends.
	LockUser(ctx context.Context, id UserID) error

	// Daily logs
	InsertLog(ctx context.Context, l DailyLog) error
	ListLogs(ctx context.Context, id UserID, f LogFilter) ([]DailyLog, error)
	CountLogs(ctx context.Context, id UserID) (int, error)
	MinutesOn(ctx context.Context, id UserID, day Date) (int, error)

	// Streaks. GetStreak returns a zero streak when none is stored.
	GetStreak(ctx context.Context, id UserID) (Streak, error)
	SaveStreak(ctx context.Context, s Streak) error

	// Badges. InsertBadges skips types the user already holds and
	// returns how many rows were written.
	ListBadges(ctx context.Context, id UserID) ([]Badge, error)
	InsertBadges(ctx context.Context, badges []Badge) (int, error)

	// Plan tasks
	InsertTasks(ctx context.Context, tasks ...PlanTask) error
	GetTask(ctx context.Context, id UserID, taskID string) (*PlanTask, error) // ErrTaskNotFound
	ListTasks(ctx context.Context, id UserID, f TaskFilter) ([]PlanTask, error)
	CountTasks(ctx context.Context, id UserID) (int, error)
	UpdateTaskStatus(ctx context.Context, id UserID, taskID string, status TaskStatus) error
	MarkTaskRewarded(ctx context.Context, id UserID, taskID string) error
	UpdateTaskDetails(ctx context.Context, id UserID, taskID, topic string, xpReward int64) error
	DeleteTask(ctx context.Context, id UserID, taskID string) error
}

// UnitOfWork runs fn inside one transaction. The Repository passed to fn is
// bound to that transaction; fn must not use any other handle.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Store is a complete storage backend.
type Store interface {
	Repository
	UnitOfWork
	Ping(ctx context.Context) error
	Close() error
}

// Coach abstracts the external coaching collaborator. Implementations may be
// a subprocess, a remote model or in-process logic; callers bound the call
// with ctx.
type Coach interface {
	Analyze(ctx context.Context, req CoachRequest) (*CoachingReport, error)
	DailySuggestion(ctx context.Context, req CoachRequest) (*Suggestion, error)
}
