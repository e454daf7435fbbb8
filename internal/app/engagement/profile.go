package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnquest/learnquest/internal/domain"
)

// PlanEntry is one row of the seeded curriculum.
type PlanEntry struct {
	Week     int
	Topic    string
	Subject  string
	XPReward int64
}

// DefaultPlan is the 4-week curriculum given to new learners.
var DefaultPlan = []PlanEntry{
	// Week 1: Java fundamentals
	{1, "Java Syntax & Variables", "Java", 100},
	{1, "Control Flow & Loops", "Java", 100},
	{1, "Functions & Methods", "Java", 100},
	{1, "OOP Concepts (Classes & Objects)", "Java", 150},
	{1, "Inheritance & Polymorphism", "Java", 150},

	// Week 2: data structures
	{2, "Arrays & ArrayList", "DSA", 100},
	{2, "Strings & String Manipulation", "DSA", 100},
	{2, "LinkedList Implementation", "DSA", 150},
	{2, "Stack & Queue", "DSA", 150},
	{2, "Sorting Algorithms", "DSA", 200},

	// Week 3: advanced DSA
	{3, "Trees & Binary Trees", "DSA", 200},
	{3, "Binary Search Trees", "DSA", 200},
	{3, "Graphs & Traversals", "DSA", 250},
	{3, "Hashing & HashMap", "DSA", 150},
	{3, "Recursion & Backtracking", "DSA", 250},

	// Week 4: CS fundamentals
	{4, "Time & Space Complexity", "CS", 150},
	{4, "Operating Systems Basics", "CS", 150},
	{4, "DBMS & SQL Fundamentals", "CS", 150},
	{4, "Networking Basics", "CS", 150},
	{4, "System Design Introduction", "CS", 200},
}

// EnsureUser returns the user, creating it on first access together with
// an empty streak and, when enabled, the default plan.
func (s *Service) EnsureUser(ctx context.Context, userID domain.UserID, username string) (*domain.User, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return nil, domain.Validation("user", "id is required")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if strings.TrimSpace(username) == "" {
		username = string(userID)
	}
	now := s.now().UTC()
	created := false
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		ok, err := repo.CreateUser(ctx, domain.User{
			ID:           userID,
			Username:     username,
			CurrentLevel: 1,
			CreatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if !ok {
			return nil // lost a race with another request
		}
		created = true
		if err := repo.SaveStreak(ctx, domain.Streak{UserID: userID}); err != nil {
			return fmt.Errorf("init streak: %w", err)
		}
		if !s.seedPlan {
			return nil
		}
		n, err := repo.CountTasks(ctx, userID)
		if err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		if n > 0 {
			return nil
		}
		return repo.InsertTasks(ctx, defaultTasks(userID, now)...)
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap user %s: %w", userID, err)
	}
	if created {
		s.logger.Info("user created", "user", userID, "seeded_plan", s.seedPlan)
	}
	return s.store.GetUser(ctx, userID)
}

// defaultTasks materializes DefaultPlan for one user. Creation times are
// spaced a millisecond apart so listings keep curriculum order.
func defaultTasks(userID domain.UserID, now time.Time) []domain.PlanTask {
	tasks := make([]domain.PlanTask, 0, len(DefaultPlan))
	for i, e := range DefaultPlan {
		tasks = append(tasks, domain.PlanTask{
			ID:          uuid.NewString(),
			UserID:      userID,
			Week:        e.Week,
			Topic:       e.Topic,
			SubjectType: e.Subject,
			Status:      domain.TaskNotStarted,
			XPReward:    e.XPReward,
			CreatedAt:   now.Add(time.Duration(i) * time.Millisecond),
		})
	}
	return tasks
}
