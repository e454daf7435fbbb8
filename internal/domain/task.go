package domain

import "time"

// TaskStatus tracks a plan task's lifecycle.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "Not Started"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// DefaultTaskXPReward is granted when a task carries no usable reward.
const DefaultTaskXPReward int64 = 100

// MaxTaskXPReward is the largest reward a task may carry.
const MaxTaskXPReward int64 = 100_000

// PlanTask is one item of the multi-week learning plan.
// XPGranted flips to true the first time the task is completed, so the
// reward is paid at most once.
type PlanTask struct {
	ID          string     `json:"id"`
	UserID      UserID     `json:"userId"`
	Week        int        `json:"week"`
	Topic       string     `json:"topic"`
	SubjectType string     `json:"subjectType"`
	Status      TaskStatus `json:"status"`
	XPReward    int64      `json:"xpReward"`
	XPGranted   bool       `json:"xpGranted"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IsCompleted returns true if the task is in the Completed state.
func (t *PlanTask) IsCompleted() bool {
	return t.Status == TaskCompleted
}

// Reward returns the XP paid on completion, falling back to the default.
func (t *PlanTask) Reward() int64 {
	if t.XPReward <= 0 {
		return DefaultTaskXPReward
	}
	return t.XPReward
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Status TaskStatus // empty means any
	Limit  int        // 0 means no limit
}
