// Package engagement implements the learnquest progression engine:
// session XP, levels, day streaks, badges, plan progress and analytics.
// The pure rules live in level.go, streak.go, badge.go, plan.go and
// analytics.go; Service wires them to storage.
package engagement

import (
	"fmt"

	"github.com/learnquest/learnquest/internal/domain"
)

// AdvanceStreak applies one logged session on day to the prior streak.
// Same day: unchanged. Next day: extend. Any larger gap, or no history:
// restart at 1. A day earlier than the last log leaves the streak alone.
func AdvanceStreak(prior domain.Streak, day domain.Date) (domain.Streak, error) {
	next := prior

	if prior.LastLogDate.IsZero() {
		next.CurrentStreak = 1
		next.LastLogDate = day
	} else {
		gap, err := domain.DaysBetween(prior.LastLogDate, day)
		if err != nil {
			return prior, fmt.Errorf("streak gap: %w", err)
		}

		switch {
		case gap < 0:
			// Clock moved backwards; keep the later date.
		case gap == 0:
			if next.CurrentStreak == 0 {
				next.CurrentStreak = 1
			}
		case gap == 1:
			next.CurrentStreak++
		default:
			next.CurrentStreak = 1
		}
		if gap >= 0 {
			next.LastLogDate = day
		}
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	return next, nil
}
