package engagement

import (
	"math"

	"github.com/learnquest/learnquest/internal/domain"
)

// XPPerMinuteDifficulty scales a session's minutes × difficulty into XP.
const XPPerMinuteDifficulty = 10

// ComputeSessionXP returns the XP earned by one study session.
// Callers validate minutes > 0 and difficulty in [1,5] first.
func ComputeSessionXP(minutes, difficulty int) int64 {
	return int64(math.Floor(float64(minutes) * float64(difficulty) * XPPerMinuteDifficulty))
}

// AddXP adds earned to a non-negative total. A negative award or a sum past
// math.MaxInt64 is rejected rather than wrapped.
func AddXP(total, earned int64) (int64, error) {
	if earned < 0 {
		return total, domain.Validation("xp", "award must not be negative, got %d", earned)
	}
	if total > math.MaxInt64-earned {
		return total, domain.Validation("xp", "total would overflow")
	}
	return total + earned, nil
}

// LevelForXP returns the level for a cumulative XP amount.
// Quadratic curve: level = floor(sqrt(xp/100)) + 1, so level 1 starts at 0.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	level := int(math.Floor(math.Sqrt(float64(xp)/100))) + 1
	if level > MaxLevel {
		level = MaxLevel
	}
	// Float rounding can land one off near perfect squares; settle on the
	// exact integer boundary.
	for level > 1 && XPForLevel(level) > xp {
		level--
	}
	for level < MaxLevel && XPForLevel(level+1) <= xp {
		level++
	}
	return level
}

// MaxLevel is the highest level whose starting XP fits in an int64.
const MaxLevel = 303_700_050

// XPForLevel returns the cumulative XP at which a level begins. Levels past
// MaxLevel saturate at math.MaxInt64.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		return math.MaxInt64
	}
	n := int64(level - 1)
	return n * n * 100
}

// Progress describes where an XP total sits inside its level.
type Progress struct {
	Level       int     `json:"level"`
	FloorXP     int64   `json:"floorXP"`
	NextLevelXP int64   `json:"nextLevelXP"`
	XPToNext    int64   `json:"xpToNext"`
	Fraction    float64 `json:"fraction"` // 0.0–1.0
}

// LevelProgress returns progress toward the next level for a progress bar.
func LevelProgress(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	floor := XPForLevel(level)
	ceil := XPForLevel(level + 1)

	p := Progress{Level: level, FloorXP: floor, NextLevelXP: ceil}
	if remaining := ceil - xp; remaining > 0 {
		p.XPToNext = remaining
	}

	span := ceil - floor
	if span <= 0 {
		p.Fraction = 1
		return p
	}
	frac := float64(xp-floor) / float64(span)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	p.Fraction = frac
	return p
}
