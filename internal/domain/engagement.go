// Package domain holds the learnquest data model, sentinel errors and the
// boundaries (storage, coach) the application layer depends on.
// Domain types are pure: no infrastructure dependency.
package domain

import "time"

// ─── User ───────────────────────────────────────────────────────────────────

// UserID identifies a learner. Every operation is scoped by one.
type UserID string

// User is a learner's progression state.
// CurrentXP never decreases; CurrentLevel is derived from it.
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	CurrentXP    int64     `json:"currentXP"`
	CurrentLevel int       `json:"currentLevel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ─── Daily Logs ─────────────────────────────────────────────────────────────

// DailyLog is one immutable study session.
type DailyLog struct {
	ID            string    `json:"id"`
	UserID        UserID    `json:"userId"`
	Date          Date      `json:"date"`
	TimeSpent     int       `json:"timeSpent"` // minutes
	Difficulty    int       `json:"difficulty"`
	Mood          string    `json:"mood"`
	Energy        string    `json:"energy"`
	FreelanceLoad string    `json:"freelanceLoad"`
	Notes         string    `json:"notes"`
	XPEarned      int64     `json:"xpEarned"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MinDifficulty and MaxDifficulty bound a session's self-rated difficulty.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// MaxSessionMinutes caps one session at a full day.
const MaxSessionMinutes = 24 * 60

// LogFilter narrows a log listing.
type LogFilter struct {
	Since Date // inclusive; empty means no lower bound
	Limit int  // 0 means no limit
	Desc  bool // newest first when true
}

// ─── Streak ─────────────────────────────────────────────────────────────────

// Streak tracks consecutive calendar days with at least one session.
// An empty LastLogDate means the user has never logged.
type Streak struct {
	UserID        UserID `json:"userId"`
	CurrentStreak int    `json:"currentStreak"`
	LongestStreak int    `json:"longestStreak"`
	LastLogDate   Date   `json:"lastLogDate,omitempty"`
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// BadgeType is the catalog key of a badge. Unique per user.
type BadgeType string

const (
	BadgeFirstStep   BadgeType = "first_step"
	BadgeWeekWarrior BadgeType = "week_warrior"
	BadgeLevel5      BadgeType = "level_5"
	BadgeXP1000      BadgeType = "xp_1000"
	BadgeMarathon    BadgeType = "marathon"
)

// Badge is a permanent, earned-once achievement.
type Badge struct {
	ID        string    `json:"id"`
	UserID    UserID    `json:"userId"`
	BadgeType BadgeType `json:"badgeType"`
	BadgeName string    `json:"badgeName"`
	EarnedAt  time.Time `json:"earnedAt"`
}
