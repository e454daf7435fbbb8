package engagement

import (
	"sort"

	"github.com/learnquest/learnquest/internal/domain"
)

// DayTotal aggregates every session logged on one calendar day.
type DayTotal struct {
	Date     domain.Date `json:"date"`
	Minutes  int         `json:"minutes"`
	XP       int64       `json:"xp"`
	Sessions int         `json:"sessions"`
}

// Summary is the analytics view over a user's whole history.
type Summary struct {
	Logs                 []domain.DailyLog          `json:"logs"`
	CompletionPercentage int                        `json:"completionPercentage"`
	TotalTasks           int                        `json:"totalTasks"`
	CompletedTasks       int                        `json:"completedTasks"`
	SubjectBreakdown     map[string]SubjectProgress `json:"subjectBreakdown"`
	WeakSubjects         []string                   `json:"weakSubjects"`
	CurrentXP            int64                      `json:"currentXP"`
	CurrentLevel         int                        `json:"currentLevel"`

	TotalSessions int        `json:"totalSessions"`
	TotalMinutes  int        `json:"totalMinutes"`
	SessionXP     int64      `json:"sessionXP"`
	AvgDifficulty float64    `json:"avgDifficulty"`
	Daily         []DayTotal `json:"daily"`
}

// Summarize composes logs and plan progress into one Summary. Any input may
// be empty; the result then carries zeros and empty lists.
func Summarize(user domain.User, logs []domain.DailyLog, tasks []domain.PlanTask, weakThreshold float64) Summary {
	sorted := make([]domain.DailyLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	completion := Completion(tasks)
	breakdown := SubjectBreakdown(tasks)

	s := Summary{
		Logs:                 sorted,
		CompletionPercentage: completion.Percentage,
		TotalTasks:           completion.Total,
		CompletedTasks:       completion.Completed,
		SubjectBreakdown:     breakdown,
		WeakSubjects:         WeakSubjects(breakdown, weakThreshold),
		CurrentXP:            user.CurrentXP,
		CurrentLevel:         user.CurrentLevel,
		TotalSessions:        len(sorted),
		Daily:                []DayTotal{},
	}
	if s.CurrentLevel < 1 {
		s.CurrentLevel = LevelForXP(user.CurrentXP)
	}

	difficultySum := 0
	for _, l := range sorted {
		s.TotalMinutes += l.TimeSpent
		s.SessionXP += l.XPEarned
		difficultySum += l.Difficulty

		if n := len(s.Daily); n > 0 && s.Daily[n-1].Date == l.Date {
			d := &s.Daily[n-1]
			d.Minutes += l.TimeSpent
			d.XP += l.XPEarned
			d.Sessions++
			continue
		}
		s.Daily = append(s.Daily, DayTotal{Date: l.Date, Minutes: l.TimeSpent, XP: l.XPEarned, Sessions: 1})
	}
	if len(sorted) > 0 {
		s.AvgDifficulty = round1(float64(difficultySum) / float64(len(sorted)))
	}
	return s
}
