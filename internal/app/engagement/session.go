package engagement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/infra/metrics"
)

// SessionInput is one study session as submitted by the learner.
type SessionInput struct {
	TimeSpent     int // minutes
	Difficulty    int // 1–5
	Mood          string
	Energy        string
	FreelanceLoad string
	Notes         string
}

// Validate rejects inputs the XP formula is not defined for.
func (in SessionInput) Validate() error {
	if in.TimeSpent <= 0 {
		return domain.Validation("timeSpent", "must be a positive number of minutes, got %d", in.TimeSpent)
	}
	if in.TimeSpent > domain.MaxSessionMinutes {
		return domain.Validation("timeSpent", "must be at most %d minutes, got %d", domain.MaxSessionMinutes, in.TimeSpent)
	}
	if in.Difficulty < domain.MinDifficulty || in.Difficulty > domain.MaxDifficulty {
		return domain.Validation("difficulty", "must be between %d and %d, got %d",
			domain.MinDifficulty, domain.MaxDifficulty, in.Difficulty)
	}
	return nil
}

// SessionResult is the state delta produced by logging one session.
type SessionResult struct {
	Log       domain.DailyLog `json:"log"`
	XPEarned  int64           `json:"xpEarned"`
	NewXP     int64           `json:"newXP"`
	NewLevel  int             `json:"newLevel"`
	NewStreak int             `json:"newStreak"`
	NewBadges []string        `json:"newBadges"`
	LeveledUp bool            `json:"leveledUp"`
}

// LogStudy records a session dated today and applies XP, level, streak and
// badge updates in one transaction. The user row is locked first so
// concurrent sessions for the same user cannot lose updates.
func (s *Service) LogStudy(ctx context.Context, userID domain.UserID, in SessionInput) (*SessionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	today := domain.DateOf(now, s.loc)
	xp := ComputeSessionXP(in.TimeSpent, in.Difficulty)

	entry := domain.DailyLog{
		ID:            uuid.NewString(),
		UserID:        userID,
		Date:          today,
		TimeSpent:     in.TimeSpent,
		Difficulty:    in.Difficulty,
		Mood:          strings.TrimSpace(in.Mood),
		Energy:        strings.TrimSpace(in.Energy),
		FreelanceLoad: strings.TrimSpace(in.FreelanceLoad),
		Notes:         strings.TrimSpace(in.Notes),
		XPEarned:      xp,
		CreatedAt:     now.UTC(),
	}

	var (
		res      SessionResult
		unlocked []BadgeDef
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		if err := repo.LockUser(ctx, userID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if err := repo.InsertLog(ctx, entry); err != nil {
			return fmt.Errorf("insert log: %w", err)
		}

		// XP and level
		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		oldLevel := LevelForXP(user.CurrentXP)
		newXP, err := AddXP(user.CurrentXP, xp)
		if err != nil {
			return err
		}
		newLevel := LevelForXP(newXP)
		if err := repo.UpdateUserProgress(ctx, userID, newXP, newLevel); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}

		// Streak
		prior, err := repo.GetStreak(ctx, userID)
		if err != nil {
			return fmt.Errorf("get streak: %w", err)
		}
		streak, err := AdvanceStreak(prior, today)
		if err != nil {
			return err
		}
		streak.UserID = userID
		if err := repo.SaveStreak(ctx, streak); err != nil {
			return fmt.Errorf("save streak: %w", err)
		}

		// Badges
		count, err := repo.CountLogs(ctx, userID)
		if err != nil {
			return fmt.Errorf("count logs: %w", err)
		}
		minutes, err := repo.MinutesOn(ctx, userID, today)
		if err != nil {
			return fmt.Errorf("minutes today: %w", err)
		}
		earned, err := repo.ListBadges(ctx, userID)
		if err != nil {
			return fmt.Errorf("list badges: %w", err)
		}
		unlocked = EvaluateBadges(BadgeStats{
			LogCount:      count,
			CurrentStreak: streak.CurrentStreak,
			Level:         newLevel,
			XP:            newXP,
			MinutesToday:  minutes,
		}, EarnedSet(earned))

		names := make([]string, 0, len(unlocked))
		if len(unlocked) > 0 {
			batch := make([]domain.Badge, 0, len(unlocked))
			for _, def := range unlocked {
				batch = append(batch, domain.Badge{
					ID:        uuid.NewString(),
					UserID:    userID,
					BadgeType: def.Type,
					BadgeName: def.Name,
					EarnedAt:  now.UTC(),
				})
				names = append(names, def.Name)
			}
			if _, err := repo.InsertBadges(ctx, batch); err != nil {
				return fmt.Errorf("insert badges: %w", err)
			}
		}

		res = SessionResult{
			Log:       entry,
			XPEarned:  xp,
			NewXP:     newXP,
			NewLevel:  newLevel,
			NewStreak: streak.CurrentStreak,
			NewBadges: names,
			LeveledUp: newLevel > oldLevel,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("log study: %w", err)
	}

	metrics.SessionsLogged.Inc()
	metrics.StudyMinutes.Add(float64(in.TimeSpent))
	metrics.XPAwarded.WithLabelValues(metrics.SourceSession).Add(float64(xp))
	for _, def := range unlocked {
		metrics.BadgesUnlocked.WithLabelValues(string(def.Type)).Inc()
	}

	s.logger.Info("session logged",
		"user", userID, "minutes", in.TimeSpent, "difficulty", in.Difficulty,
		"xp", xp, "total_xp", res.NewXP, "level", res.NewLevel, "streak", res.NewStreak)
	if res.LeveledUp {
		s.logger.Info("level up", "user", userID, "level", res.NewLevel)
	}
	for _, name := range res.NewBadges {
		s.logger.Info("badge unlocked", "user", userID, "badge", name)
	}
	return &res, nil
}
