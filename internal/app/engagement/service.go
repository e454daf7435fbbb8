package engagement

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/learnquest/learnquest/internal/domain"
)

// Options configures a Service. Zero values pick the defaults.
type Options struct {
	Clock         func() time.Time // time.Now
	Location      *time.Location   // time.Local; decides what "today" is
	Messages      MessageSelector  // NewRandomMessages(nil)
	SeedPlan      bool             // seed the default plan for new users
	WeakThreshold float64          // DefaultWeakThreshold
	Logger        *log.Logger
}

// Service runs the progression engine against a store. Every write is one
// unit of work; reads go straight to the store.
type Service struct {
	store         domain.Store
	now           func() time.Time
	loc           *time.Location
	messages      MessageSelector
	seedPlan      bool
	weakThreshold float64
	logger        *log.Logger
}

// NewService creates the engagement service.
func NewService(store domain.Store, opts Options) *Service {
	s := &Service{
		store:         store,
		now:           opts.Clock,
		loc:           opts.Location,
		messages:      opts.Messages,
		seedPlan:      opts.SeedPlan,
		weakThreshold: opts.WeakThreshold,
		logger:        opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.messages == nil {
		s.messages = NewRandomMessages(nil)
	}
	if s.weakThreshold <= 0 {
		s.weakThreshold = DefaultWeakThreshold
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

// Today returns the current calendar day in the service's time zone.
func (s *Service) Today() domain.Date {
	return domain.DateOf(s.now(), s.loc)
}
