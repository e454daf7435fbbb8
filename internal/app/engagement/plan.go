package engagement

import (
	"math"
	"sort"

	"github.com/learnquest/learnquest/internal/domain"
)

// DefaultWeakThreshold flags subjects completed below 30%.
const DefaultWeakThreshold = 0.3

// CompletionStats summarizes how much of a plan is done.
type CompletionStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"` // 0–100, rounded
}

// SubjectProgress counts tasks of one subject.
type SubjectProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Rate returns completed/total, or 0 for an empty subject.
func (s SubjectProgress) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// GroupByWeek buckets tasks by week. Order inside a week follows the input.
func GroupByWeek(tasks []domain.PlanTask) map[int][]domain.PlanTask {
	weeks := make(map[int][]domain.PlanTask)
	for _, t := range tasks {
		weeks[t.Week] = append(weeks[t.Week], t)
	}
	return weeks
}

// Weeks returns the keys of a grouped plan in ascending order.
func Weeks(grouped map[int][]domain.PlanTask) []int {
	keys := make([]int, 0, len(grouped))
	for w := range grouped {
		keys = append(keys, w)
	}
	sort.Ints(keys)
	return keys
}

// Completion computes plan completion. An empty plan is 0%.
func Completion(tasks []domain.PlanTask) CompletionStats {
	stats := CompletionStats{Total: len(tasks)}
	for i := range tasks {
		if tasks[i].IsCompleted() {
			stats.Completed++
		}
	}
	if stats.Total > 0 {
		stats.Percentage = int(math.Round(100 * float64(stats.Completed) / float64(stats.Total)))
	}
	return stats
}

// SubjectBreakdown counts total and completed tasks per subject.
func SubjectBreakdown(tasks []domain.PlanTask) map[string]SubjectProgress {
	out := make(map[string]SubjectProgress)
	for i := range tasks {
		p := out[tasks[i].SubjectType]
		p.Total++
		if tasks[i].IsCompleted() {
			p.Completed++
		}
		out[tasks[i].SubjectType] = p
	}
	return out
}

// WeakSubjects returns subjects whose completion rate is below threshold,
// sorted by name. Subjects without tasks are never weak.
func WeakSubjects(breakdown map[string]SubjectProgress, threshold float64) []string {
	weak := []string{}
	for subject, p := range breakdown {
		if p.Total == 0 {
			continue
		}
		if p.Rate() < threshold {
			weak = append(weak, subject)
		}
	}
	sort.Strings(weak)
	return weak
}

// WeakSubjectRates is WeakSubjects with each subject's completion rate as a
// percentage rounded to one decimal.
func WeakSubjectRates(breakdown map[string]SubjectProgress, threshold float64) []domain.WeakSubject {
	names := WeakSubjects(breakdown, threshold)
	out := make([]domain.WeakSubject, 0, len(names))
	for _, name := range names {
		out = append(out, domain.WeakSubject{
			Subject:        name,
			CompletionRate: round1(breakdown[name].Rate() * 100),
		})
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
