package engagement

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/learnquest/learnquest/internal/domain"
)

// MessageSelector picks the dashboard's motivational message.
type MessageSelector interface {
	Select(user domain.User, streak domain.Streak) string
}

// MessageSelectorFunc adapts a function to MessageSelector.
type MessageSelectorFunc func(domain.User, domain.Streak) string

// Select implements MessageSelector.
func (f MessageSelectorFunc) Select(u domain.User, s domain.Streak) string { return f(u, s) }

var stockMessages = []string{
	"You're doing amazing! Keep pushing forward! 🚀",
	"Every small step counts. You're building greatness! 💪",
	"Consistency is key. You're on the right path! 🌟",
	"Your future self will thank you for today's effort! ✨",
	"Learning is a journey, not a race. Enjoy the process! 🎯",
	"You're leveling up your skills every day! 🎮",
	"Small progress is still progress. Keep going! 🌱",
	"Your dedication is inspiring! Stay focused! 🔥",
}

// RandomMessages celebrates long streaks and high levels, and otherwise
// picks a stock message using its random source.
type RandomMessages struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomMessages creates a selector. A nil rng uses a randomly seeded one.
func NewRandomMessages(rng *rand.Rand) *RandomMessages {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomMessages{rng: rng}
}

// Select implements MessageSelector.
func (r *RandomMessages) Select(user domain.User, streak domain.Streak) string {
	switch {
	case streak.CurrentStreak >= 7:
		return fmt.Sprintf("🔥 %d-day streak! You're unstoppable! Keep the fire burning! 🔥", streak.CurrentStreak)
	case user.CurrentLevel >= 10:
		return fmt.Sprintf("🏆 Level %d achiever! You're crushing it! 🏆", user.CurrentLevel)
	}
	r.mu.Lock()
	i := r.rng.IntN(len(stockMessages))
	r.mu.Unlock()
	return stockMessages[i]
}

// StockMessages returns a copy of the stock message pool.
func StockMessages() []string {
	out := make([]string, len(stockMessages))
	copy(out, stockMessages)
	return out
}
