package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/learnquest/learnquest/internal/app/engagement"
	"github.com/learnquest/learnquest/internal/domain"
)

// LocalCoach answers from rules over the detected patterns. It needs no
// external process and always answers.
type LocalCoach struct {
	WeakThreshold float64
}

// NewLocalCoach creates the in-process backend.
func NewLocalCoach(weakThreshold float64) *LocalCoach {
	if weakThreshold <= 0 {
		weakThreshold = engagement.DefaultWeakThreshold
	}
	return &LocalCoach{WeakThreshold: weakThreshold}
}

// Analyze implements domain.Coach.
func (c *LocalCoach) Analyze(ctx context.Context, req domain.CoachRequest) (*domain.CoachingReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	patterns := DetectPatterns(req.Logs)
	weak := FindWeakSubjects(req.LearningPlan, c.WeakThreshold)

	var b strings.Builder
	level := max(req.UserData.CurrentLevel, 1)

	switch {
	case patterns.TotalSessions == 0:
		fmt.Fprintf(&b, "You're at level %d with no sessions logged yet. Log your first session today to start your streak.", level)
	default:
		fmt.Fprintf(&b, "You're at level %d with %d XP after %d sessions (%d minutes in total, about %s minutes each).",
			level, req.UserData.CurrentXP, patterns.TotalSessions, patterns.TotalStudyTime, num(patterns.AvgTimePerSession))
	}

	var concerns []string
	if patterns.BurnoutRisk {
		concerns = append(concerns, "Several recent sessions were long and hard. Schedule a lighter day to avoid burning out.")
	}
	if patterns.SkipDetection {
		concerns = append(concerns, "There are multi-day gaps in your log. Short daily sessions beat occasional long ones.")
	}
	if patterns.TotalSessions > 0 && patterns.ConsistencyScore < 50 {
		concerns = append(concerns, "Aim for a session on most days this week to build consistency.")
	}
	if len(concerns) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(concerns, " "))
	}

	if len(weak) > 0 {
		names := make([]string, 0, len(weak))
		for _, ws := range weak {
			names = append(names, fmt.Sprintf("%s (%s%% done)", ws.Subject, num(ws.CompletionRate)))
		}
		fmt.Fprintf(&b, "\n\nFocus areas: %s.", strings.Join(names, ", "))
	}
	b.WriteString("\n\n" + FallbackCoaching)

	return &domain.CoachingReport{
		Success:      true,
		Coaching:     b.String(),
		Patterns:     &patterns,
		WeakSubjects: weak,
	}, nil
}

// DailySuggestion implements domain.Coach. It points at the first open
// task of the weakest subject when there is one.
func (c *LocalCoach) DailySuggestion(ctx context.Context, req domain.CoachRequest) (*domain.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	weak := FindWeakSubjects(req.LearningPlan, c.WeakThreshold)
	if len(weak) == 0 {
		return &domain.Suggestion{Success: true, Suggestion: LLMErrorSuggestion}, nil
	}

	lowest := weak[0]
	for _, ws := range weak[1:] {
		if ws.CompletionRate < lowest.CompletionRate {
			lowest = ws
		}
	}
	if task := nextTask(req.LearningPlan, lowest.Subject); task != nil {
		return &domain.Suggestion{
			Success:    true,
			Suggestion: fmt.Sprintf("Work on %q (%s, week %d) today and aim for at least 60 minutes.", task.Topic, task.SubjectType, task.Week),
		}, nil
	}
	return &domain.Suggestion{
		Success:    true,
		Suggestion: fmt.Sprintf("Spend today on %s and aim for at least 60 minutes.", lowest.Subject),
	}, nil
}

// nextTask returns the earliest unfinished task of subject, preferring one
// already in progress.
func nextTask(plan map[int][]domain.PlanTask, subject string) *domain.PlanTask {
	var first *domain.PlanTask
	for _, week := range engagement.Weeks(plan) {
		for i := range plan[week] {
			t := &plan[week][i]
			if t.SubjectType != subject || t.IsCompleted() {
				continue
			}
			if t.Status == domain.TaskInProgress {
				return t
			}
			if first == nil {
				first = t
			}
		}
	}
	return first
}
