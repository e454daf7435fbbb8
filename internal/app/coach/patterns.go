// Package coach provides the study coach collaborator: pattern detection
// over logs, three interchangeable backends (script subprocess, Ollama,
// local rules) and a Service that bounds every call with a timeout and
// falls back to canned advice.
package coach

import (
	"math"
	"sort"

	"github.com/learnquest/learnquest/internal/app/engagement"
	"github.com/learnquest/learnquest/internal/domain"
)

const (
	skipGapDays       = 3   // a gap longer than this is a skip
	burnoutWindow     = 7   // most recent sessions inspected for burnout
	burnoutDifficulty = 4   // minimum difficulty of a high-intensity session
	burnoutMinutes    = 180 // minimum length of a high-intensity session
	burnoutSessions   = 3   // high-intensity sessions that signal burnout
)

// DetectPatterns summarizes study behavior. Logs may arrive in any order.
func DetectPatterns(logs []domain.DailyLog) domain.Patterns {
	n := len(logs)
	if n == 0 {
		return domain.Patterns{}
	}

	sorted := make([]domain.DailyLog, n)
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var minutes, difficulty int
	for _, l := range sorted {
		minutes += l.TimeSpent
		difficulty += l.Difficulty
	}

	p := domain.Patterns{
		TotalSessions:     n,
		AvgTimePerSession: round1(float64(minutes) / float64(n)),
		AvgDifficulty:     round1(float64(difficulty) / float64(n)),
		TotalStudyTime:    minutes,
	}

	if n >= 7 {
		p.ConsistencyScore = round1(math.Min(100, float64(n)/30*100))
	} else {
		p.ConsistencyScore = round1(float64(n) / 7 * 100)
	}

	for i := 1; i < n; i++ {
		gap, err := domain.DaysBetween(sorted[i-1].Date, sorted[i].Date)
		if err == nil && gap > skipGapDays {
			p.SkipDetection = true
			break
		}
	}

	recent := sorted
	if len(recent) > burnoutWindow {
		recent = recent[len(recent)-burnoutWindow:]
	}
	intense := 0
	for _, l := range recent {
		if l.Difficulty >= burnoutDifficulty && l.TimeSpent >= burnoutMinutes {
			intense++
		}
	}
	p.BurnoutRisk = intense >= burnoutSessions
	return p
}

// FindWeakSubjects flags subjects of the plan completed below threshold.
func FindWeakSubjects(plan map[int][]domain.PlanTask, threshold float64) []domain.WeakSubject {
	var tasks []domain.PlanTask
	for _, week := range engagement.Weeks(plan) {
		tasks = append(tasks, plan[week]...)
	}
	return engagement.WeakSubjectRates(engagement.SubjectBreakdown(tasks), threshold)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
