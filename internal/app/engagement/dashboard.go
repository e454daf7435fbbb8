package engagement

import (
	"context"
	"fmt"

	"github.com/learnquest/learnquest/internal/domain"
)

const (
	recentLogDays  = 7
	todayTaskLimit = 3
)

// Dashboard is the landing snapshot for one learner.
type Dashboard struct {
	User                domain.User       `json:"user"`
	Streak              domain.Streak     `json:"streak"`
	Badges              []domain.Badge    `json:"badges"`
	RecentLogs          []domain.DailyLog `json:"recentLogs"`
	TodayTasks          []domain.PlanTask `json:"todayTasks"`
	Progress            Progress          `json:"progress"`
	MotivationalMessage string            `json:"motivationalMessage"`
}

// Dashboard assembles the user's current state, the last week of logs and
// the tasks in progress.
func (s *Service) Dashboard(ctx context.Context, userID domain.UserID) (*Dashboard, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	streak, err := s.store.GetStreak(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	badges, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	since, err := s.Today().AddDays(-recentLogDays)
	if err != nil {
		return nil, err
	}
	logs, err := s.store.ListLogs(ctx, userID, domain.LogFilter{Since: since, Desc: true})
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	tasks, err := s.store.ListTasks(ctx, userID, domain.TaskFilter{Status: domain.TaskInProgress, Limit: todayTaskLimit})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	streak.UserID = userID
	return &Dashboard{
		User:                *user,
		Streak:              streak,
		Badges:              nonNil(badges),
		RecentLogs:          nonNil(logs),
		TodayTasks:          nonNil(tasks),
		Progress:            LevelProgress(user.CurrentXP),
		MotivationalMessage: s.messages.Select(*user, streak),
	}, nil
}

// Analytics summarizes the user's whole history.
func (s *Service) Analytics(ctx context.Context, userID domain.UserID) (*Summary, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	logs, err := s.store.ListLogs(ctx, userID, domain.LogFilter{})
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	tasks, err := s.store.ListTasks(ctx, userID, domain.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	summary := Summarize(*user, logs, tasks, s.weakThreshold)
	return &summary, nil
}

// CoachInput gathers what a coach needs: the user, the newest logs (all of
// them when limit is 0) and the plan grouped by week.
func (s *Service) CoachInput(ctx context.Context, userID domain.UserID, limit int) (domain.CoachRequest, error) {
	var req domain.CoachRequest
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return req, fmt.Errorf("get user: %w", err)
	}
	logs, err := s.store.ListLogs(ctx, userID, domain.LogFilter{Limit: limit, Desc: true})
	if err != nil {
		return req, fmt.Errorf("list logs: %w", err)
	}
	plan, err := s.LearningPlan(ctx, userID)
	if err != nil {
		return req, err
	}
	req.UserData = *user
	req.Logs = nonNil(logs)
	req.LearningPlan = plan
	return req, nil
}

// WeakThreshold returns the completion rate below which a subject is weak.
func (s *Service) WeakThreshold() float64 { return s.weakThreshold }

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
