package engagement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/infra/metrics"
)

// LearningPlan returns the user's tasks grouped by week.
func (s *Service) LearningPlan(ctx context.Context, userID domain.UserID) (map[int][]domain.PlanTask, error) {
	tasks, err := s.store.ListTasks(ctx, userID, domain.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return GroupByWeek(tasks), nil
}

// TaskUpdate is the outcome of a status change. The XP fields are set only
// when the new status is Completed.
type TaskUpdate struct {
	Task      domain.PlanTask
	Completed bool
	XPEarned  int64
	NewXP     int64
	NewLevel  int
}

// UpdateTaskStatus moves a task to status. The first transition to
// Completed pays the task's reward; later ones pay nothing. Streak and
// badges are not touched.
func (s *Service) UpdateTaskStatus(ctx context.Context, userID domain.UserID, taskID string, status domain.TaskStatus) (*TaskUpdate, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, domain.Validation("taskId", "is required")
	}
	if !status.Valid() {
		return nil, domain.Validation("status", "must be one of %q, %q, %q, got %q",
			domain.TaskNotStarted, domain.TaskInProgress, domain.TaskCompleted, status)
	}

	var out TaskUpdate
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		if err := repo.LockUser(ctx, userID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		task, err := repo.GetTask(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if err := repo.UpdateTaskStatus(ctx, userID, taskID, status); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		task.Status = status
		out.Task = *task

		if status != domain.TaskCompleted {
			return nil
		}
		out.Completed = true

		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		out.NewXP = user.CurrentXP
		out.NewLevel = LevelForXP(user.CurrentXP)
		if task.XPGranted {
			return nil
		}

		newXP, err := AddXP(user.CurrentXP, task.Reward())
		if err != nil {
			return err
		}
		out.XPEarned = task.Reward()
		out.NewXP = newXP
		out.NewLevel = LevelForXP(out.NewXP)
		if err := repo.UpdateUserProgress(ctx, userID, out.NewXP, out.NewLevel); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		if err := repo.MarkTaskRewarded(ctx, userID, taskID); err != nil {
			return fmt.Errorf("mark rewarded: %w", err)
		}
		out.Task.XPGranted = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}

	if out.XPEarned > 0 {
		metrics.TasksCompleted.Inc()
		metrics.XPAwarded.WithLabelValues(metrics.SourceTask).Add(float64(out.XPEarned))
		s.logger.Info("task completed", "user", userID, "task", taskID, "xp", out.XPEarned, "total_xp", out.NewXP)
	} else {
		s.logger.Debug("task status changed", "user", userID, "task", taskID, "status", status)
	}
	return &out, nil
}

// NewTask is a task added by hand.
type NewTask struct {
	Week        int
	Topic       string
	SubjectType string
	XPReward    int64 // <= 0 means the default reward
}

// AddTask appends a task to the plan in the Not Started state.
func (s *Service) AddTask(ctx context.Context, userID domain.UserID, in NewTask) (*domain.PlanTask, error) {
	topic := strings.TrimSpace(in.Topic)
	subject := strings.TrimSpace(in.SubjectType)
	switch {
	case in.Week <= 0:
		return nil, domain.Validation("week", "must be a positive week number")
	case topic == "":
		return nil, domain.Validation("topic", "is required")
	case subject == "":
		return nil, domain.Validation("subjectType", "is required")
	case in.XPReward > domain.MaxTaskXPReward:
		return nil, domain.Validation("xpReward", "must be at most %d, got %d", domain.MaxTaskXPReward, in.XPReward)
	}
	reward := in.XPReward
	if reward <= 0 {
		reward = domain.DefaultTaskXPReward
	}

	task := domain.PlanTask{
		ID:          uuid.NewString(),
		UserID:      userID,
		Week:        in.Week,
		Topic:       topic,
		SubjectType: subject,
		Status:      domain.TaskNotStarted,
		XPReward:    reward,
		CreatedAt:   s.now().UTC(),
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		return repo.InsertTasks(ctx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	s.logger.Debug("task added", "user", userID, "task", task.ID, "week", task.Week)
	return &task, nil
}

// TaskEdit changes a task's display fields. A blank Topic or a reward <= 0
// keeps the stored value; at least one must be usable.
type TaskEdit struct {
	ID       string
	Topic    string
	XPReward int64
}

// EditTask updates topic and reward. Status is never changed here.
func (s *Service) EditTask(ctx context.Context, userID domain.UserID, edit TaskEdit) (*domain.PlanTask, error) {
	id := strings.TrimSpace(edit.ID)
	topic := strings.TrimSpace(edit.Topic)
	if id == "" {
		return nil, domain.Validation("id", "is required")
	}
	if edit.XPReward > domain.MaxTaskXPReward {
		return nil, domain.Validation("xpReward", "must be at most %d, got %d", domain.MaxTaskXPReward, edit.XPReward)
	}
	if topic == "" && edit.XPReward <= 0 {
		return nil, domain.Validation("", "nothing to update: provide topic or a positive xpReward")
	}

	var out *domain.PlanTask
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		task, err := repo.GetTask(ctx, userID, id)
		if err != nil {
			return err
		}
		if topic != "" {
			task.Topic = topic
		}
		if edit.XPReward > 0 {
			task.XPReward = edit.XPReward
		}
		if err := repo.UpdateTaskDetails(ctx, userID, id, task.Topic, task.XPReward); err != nil {
			return fmt.Errorf("update details: %w", err)
		}
		out = task
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit task %s: %w", id, err)
	}
	return out, nil
}

// DeleteTask removes a task from the plan.
func (s *Service) DeleteTask(ctx context.Context, userID domain.UserID, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.Validation("id", "is required")
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		if _, err := repo.GetTask(ctx, userID, taskID); err != nil {
			return err
		}
		return repo.DeleteTask(ctx, userID, taskID)
	})
	if err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	s.logger.Debug("task deleted", "user", userID, "task", taskID)
	return nil
}
