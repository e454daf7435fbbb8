package engagement

import "github.com/learnquest/learnquest/internal/domain"

// MarathonMinutes is the same-day study time that earns the marathon badge.
const MarathonMinutes = 240

// BadgeStats is the post-update snapshot badges are evaluated against.
type BadgeStats struct {
	LogCount      int   // total logged sessions, including the new one
	CurrentStreak int   // after the streak update
	Level         int   // after the XP update
	XP            int64 // after the XP update
	MinutesToday  int   // all sessions dated today, including the new one
}

// BadgeDef is one catalog entry: a stable type, a display name and the rule
// that earns it.
type BadgeDef struct {
	Type      domain.BadgeType
	Name      string
	Icon      string
	Predicate func(BadgeStats) bool
}

// AllBadges returns the badge catalog in evaluation order.
func AllBadges() []BadgeDef {
	return []BadgeDef{
		{
			Type: domain.BadgeFirstStep, Name: "First Step", Icon: "👣",
			Predicate: func(s BadgeStats) bool { return s.LogCount == 1 },
		},
		{
			Type: domain.BadgeWeekWarrior, Name: "Week Warrior", Icon: "🔥",
			Predicate: func(s BadgeStats) bool { return s.CurrentStreak >= 7 },
		},
		{
			Type: domain.BadgeLevel5, Name: "Level 5 Master", Icon: "⭐",
			Predicate: func(s BadgeStats) bool { return s.Level >= 5 },
		},
		{
			Type: domain.BadgeXP1000, Name: "XP Collector", Icon: "💎",
			Predicate: func(s BadgeStats) bool { return s.XP >= 1000 },
		},
		{
			Type: domain.BadgeMarathon, Name: "Study Marathon", Icon: "🏃",
			Predicate: func(s BadgeStats) bool { return s.MinutesToday >= MarathonMinutes },
		},
	}
}

// BadgeName returns the display name of a badge type, or the type itself
// when it is not in the catalog.
func BadgeName(t domain.BadgeType) string {
	for _, def := range AllBadges() {
		if def.Type == t {
			return def.Name
		}
	}
	return string(t)
}

// EvaluateBadges returns the catalog entries whose rule holds for stats and
// that are not already in earned. Order follows the catalog.
// Evaluating again with the same inputs after persisting the result yields
// nothing new.
func EvaluateBadges(stats BadgeStats, earned map[domain.BadgeType]bool) []BadgeDef {
	var unlocked []BadgeDef
	for _, def := range AllBadges() {
		if earned[def.Type] {
			continue
		}
		if def.Predicate != nil && def.Predicate(stats) {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}

// EarnedSet indexes badges by type.
func EarnedSet(badges []domain.Badge) map[domain.BadgeType]bool {
	set := make(map[domain.BadgeType]bool, len(badges))
	for _, b := range badges {
		set[b.BadgeType] = true
	}
	return set
}
