package engagement_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/learnquest/learnquest/internal/app/engagement"
	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/infra/sqlstore"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

const testUser domain.UserID = "user_test"

func newService(t *testing.T, seed bool) (*engagement.Service, *clock, *sqlstore.DB) {
	t.Helper()
	db := testDB(t)
	clk := &clock{now: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)}
	svc := engagement.NewService(db, engagement.Options{
		Clock:    clk.Now,
		Location: time.UTC,
		Messages: engagement.MessageSelectorFunc(func(domain.User, domain.Streak) string { return "keep going" }),
		SeedPlan: seed,
	})
	if _, err := svc.EnsureUser(context.Background(), testUser, "Tester"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	return svc, clk, db
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Logging Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestLogStudy_FreshUser(t *testing.T) {
	svc, _, _ := newService(t, false)

	res, err := svc.LogStudy(context.Background(), testUser, engagement.SessionInput{
		TimeSpent: 120, Difficulty: 4, Mood: " focused ", Notes: "graphs",
	})
	if err != nil {
		t.Fatalf("LogStudy: %v", err)
	}
	if res.XPEarned != 4800 || res.NewXP != 4800 {
		t.Errorf("xp = %d earned, %d total; want 4800/4800", res.XPEarned, res.NewXP)
	}
	if res.NewLevel != 7 {
		t.Errorf("level = %d, want 7", res.NewLevel)
	}
	if res.NewStreak != 1 {
		t.Errorf("streak = %d, want 1", res.NewStreak)
	}
	want := "[First Step Level 5 Master XP Collector]"
	if fmt.Sprint(res.NewBadges) != want {
		t.Errorf("badges = %v, want %s", res.NewBadges, want)
	}
	if !res.LeveledUp {
		t.Error("expected level up")
	}
	if res.Log.Date != "2025-07-01" || res.Log.Mood != "focused" || res.Log.XPEarned != 4800 {
		t.Errorf("log = %+v", res.Log)
	}
}

func TestLogStudy_Validation(t *testing.T) {
	svc, _, db := newService(t, false)
	ctx := context.Background()

	bad := []engagement.SessionInput{
		{TimeSpent: 0, Difficulty: 3},
		{TimeSpent: -5, Difficulty: 3},
		{TimeSpent: 30, Difficulty: 0},
		{TimeSpent: 30, Difficulty: 6},
		{TimeSpent: domain.MaxSessionMinutes + 1, Difficulty: 5},
		{TimeSpent: math.MaxInt, Difficulty: 5},
	}
	for _, in := range bad {
		if _, err := svc.LogStudy(ctx, testUser, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("LogStudy(%+v) err = %v, want validation error", in, err)
		}
	}
	if n, _ := db.CountLogs(ctx, testUser); n != 0 {
		t.Errorf("rejected input wrote %d logs", n)
	}
}

func TestLogStudy_FullDayIsAccepted(t *testing.T) {
	svc, _, _ := newService(t, false)

	res, err := svc.LogStudy(context.Background(), testUser, engagement.SessionInput{
		TimeSpent: domain.MaxSessionMinutes, Difficulty: domain.MaxDifficulty,
	})
	if err != nil {
		t.Fatalf("LogStudy: %v", err)
	}
	if want := int64(domain.MaxSessionMinutes * domain.MaxDifficulty * 10); res.XPEarned != want || res.NewXP != want {
		t.Errorf("xp = %d earned, %d total; want %d", res.XPEarned, res.NewXP, want)
	}
}

func TestLogStudy_RejectsXPOverflow(t *testing.T) {
	svc, _, db := newService(t, false)
	ctx := context.Background()

	near := int64(math.MaxInt64 - 5)
	if err := db.UpdateUserProgress(ctx, testUser, near, engagement.LevelForXP(near)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 30, Difficulty: 2}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("LogStudy err = %v, want validation error", err)
	}

	u, err := db.GetUser(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if u.CurrentXP != near {
		t.Errorf("xp = %d, want unchanged %d", u.CurrentXP, near)
	}
	if n, _ := db.CountLogs(ctx, testUser); n != 0 {
		t.Errorf("rolled back session left %d logs", n)
	}
}

func TestLogStudy_UnknownUser(t *testing.T) {
	svc, _, _ := newService(t, false)
	_, err := svc.LogStudy(context.Background(), "ghost", engagement.SessionInput{TimeSpent: 10, Difficulty: 1})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestLogStudy_StreakAcrossDays(t *testing.T) {
	svc, clk, db := newService(t, false)
	ctx := context.Background()
	in := engagement.SessionInput{TimeSpent: 10, Difficulty: 1}

	steps := []struct {
		advance time.Duration
		want    int
	}{
		{0, 1},
		{2 * time.Hour, 1}, // same day
		{24 * time.Hour, 2},
		{24 * time.Hour, 3},
		{48 * time.Hour, 1}, // skipped a day
		{24 * time.Hour, 2},
	}
	for i, step := range steps {
		clk.Advance(step.advance)
		res, err := svc.LogStudy(ctx, testUser, in)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.NewStreak != step.want {
			t.Errorf("step %d: streak = %d, want %d", i, res.NewStreak, step.want)
		}
	}

	s, err := db.GetStreak(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if s.LongestStreak != 3 {
		t.Errorf("longest = %d, want 3", s.LongestStreak)
	}
}

func TestLogStudy_BadgesOnce(t *testing.T) {
	svc, clk, db := newService(t, false)
	ctx := context.Background()

	// Two sessions the same day crossing 240 minutes earn the marathon.
	r1, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 1, Difficulty: 1})
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(r1.NewBadges) != "[First Step]" {
		t.Errorf("first badges = %v", r1.NewBadges)
	}
	r2, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 239, Difficulty: 1})
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(r2.NewBadges) != "[Level 5 Master XP Collector Study Marathon]" {
		t.Errorf("second badges = %v", r2.NewBadges)
	}

	clk.Advance(24 * time.Hour)
	r3, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 300, Difficulty: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(r3.NewBadges) != 0 {
		t.Errorf("badges re-awarded: %v", r3.NewBadges)
	}

	badges, err := db.ListBadges(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(badges) != 4 {
		t.Errorf("stored %d badges, want 4", len(badges))
	}
}

func TestLogStudy_WeekWarrior(t *testing.T) {
	svc, clk, _ := newService(t, false)
	ctx := context.Background()

	var last *engagement.SessionResult
	for day := 0; day < 7; day++ {
		if day > 0 {
			clk.Advance(24 * time.Hour)
		}
		res, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 1, Difficulty: 1})
		if err != nil {
			t.Fatal(err)
		}
		last = res
	}
	if last.NewStreak != 7 || fmt.Sprint(last.NewBadges) != "[Week Warrior]" {
		t.Errorf("day 7: streak %d, badges %v", last.NewStreak, last.NewBadges)
	}
}

func TestLogStudy_ConcurrentSessionsKeepAllXP(t *testing.T) {
	svc, _, db := newService(t, false)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 10, Difficulty: 2})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("LogStudy: %v", err)
		}
	}

	u, err := db.GetUser(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if u.CurrentXP != n*200 {
		t.Errorf("xp = %d, want %d", u.CurrentXP, n*200)
	}
	badges, _ := db.ListBadges(ctx, testUser)
	seen := map[domain.BadgeType]bool{}
	for _, b := range badges {
		if seen[b.BadgeType] {
			t.Errorf("duplicate badge %s", b.BadgeType)
		}
		seen[b.BadgeType] = true
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Plan Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestEnsureUser_SeedsDefaultPlanOnce(t *testing.T) {
	svc, _, db := newService(t, true)
	ctx := context.Background()

	u, err := svc.EnsureUser(ctx, testUser, "Other Name")
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "Tester" || u.CurrentLevel != 1 || u.CurrentXP != 0 {
		t.Errorf("user = %+v", u)
	}

	n, err := db.CountTasks(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(engagement.DefaultPlan) {
		t.Errorf("seeded %d tasks, want %d", n, len(engagement.DefaultPlan))
	}

	plan, err := svc.LearningPlan(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 4 || len(plan[1]) != 5 {
		t.Errorf("plan weeks = %d, week1 = %d", len(plan), len(plan[1]))
	}
	if plan[1][0].Topic != "Java Syntax & Variables" || plan[4][4].XPReward != 200 {
		t.Errorf("plan order wrong: %q / %d", plan[1][0].Topic, plan[4][4].XPReward)
	}

	if _, err := svc.EnsureUser(ctx, "", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank user err = %v", err)
	}
}

func TestUpdateTaskStatus_RewardPaidOnce(t *testing.T) {
	svc, _, db := newService(t, false)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, testUser, engagement.NewTask{Week: 1, Topic: "Loops", SubjectType: "Java", XPReward: 150})
	if err != nil {
		t.Fatal(err)
	}

	up, err := svc.UpdateTaskStatus(ctx, testUser, task.ID, domain.TaskInProgress)
	if err != nil {
		t.Fatal(err)
	}
	if up.Completed || up.XPEarned != 0 {
		t.Errorf("in-progress update = %+v", up)
	}

	up, err = svc.UpdateTaskStatus(ctx, testUser, task.ID, domain.TaskCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if !up.Completed || up.XPEarned != 150 || up.NewXP != 150 || up.NewLevel != 2 || !up.Task.XPGranted {
		t.Errorf("completion = %+v", up)
	}

	// Toggle away and back: no second reward.
	if _, err := svc.UpdateTaskStatus(ctx, testUser, task.ID, domain.TaskInProgress); err != nil {
		t.Fatal(err)
	}
	up, err = svc.UpdateTaskStatus(ctx, testUser, task.ID, domain.TaskCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if up.XPEarned != 0 || up.NewXP != 150 {
		t.Errorf("re-completion = %+v", up)
	}

	// Completion does not touch streak or badges.
	s, _ := db.GetStreak(ctx, testUser)
	if s.CurrentStreak != 0 {
		t.Errorf("streak changed to %d", s.CurrentStreak)
	}
	badges, _ := db.ListBadges(ctx, testUser)
	if len(badges) != 0 {
		t.Errorf("badges awarded on completion: %v", badges)
	}
}

func TestUpdateTaskStatus_RejectsXPOverflow(t *testing.T) {
	svc, _, db := newService(t, false)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, testUser, engagement.NewTask{Week: 1, Topic: "Loops", SubjectType: "Java", XPReward: 500})
	if err != nil {
		t.Fatal(err)
	}
	near := int64(math.MaxInt64 - 100)
	if err := db.UpdateUserProgress(ctx, testUser, near, engagement.LevelForXP(near)); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateTaskStatus(ctx, testUser, task.ID, domain.TaskCompleted); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("UpdateTaskStatus err = %v, want validation error", err)
	}
	got, err := db.GetTask(ctx, testUser, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.TaskNotStarted || got.XPGranted {
		t.Errorf("task after rejected completion = %+v", got)
	}
	if u, _ := db.GetUser(ctx, testUser); u.CurrentXP != near {
		t.Errorf("xp = %d, want unchanged %d", u.CurrentXP, near)
	}
}

func TestUpdateTaskStatus_Errors(t *testing.T) {
	svc, _, _ := newService(t, false)
	ctx := context.Background()

	if _, err := svc.UpdateTaskStatus(ctx, testUser, "", domain.TaskCompleted); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank id err = %v", err)
	}
	if _, err := svc.UpdateTaskStatus(ctx, testUser, "x", "Done"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad status err = %v", err)
	}
	if _, err := svc.UpdateTaskStatus(ctx, testUser, "missing", domain.TaskCompleted); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("missing task err = %v", err)
	}
}

func TestAddTask(t *testing.T) {
	svc, _, _ := newService(t, false)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, testUser, engagement.NewTask{Week: 2, Topic: " Heaps ", SubjectType: "DSA"})
	if err != nil {
		t.Fatal(err)
	}
	if task.XPReward != domain.DefaultTaskXPReward || task.Status != domain.TaskNotStarted || task.Topic != "Heaps" {
		t.Errorf("task = %+v", task)
	}

	bad := []engagement.NewTask{
		{Week: 0, Topic: "a", SubjectType: "b"},
		{Week: 1, Topic: "  ", SubjectType: "b"},
		{Week: 1, Topic: "a", SubjectType: ""},
		{Week: 1, Topic: "a", SubjectType: "b", XPReward: domain.MaxTaskXPReward + 1},
	}
	for _, in := range bad {
		if _, err := svc.AddTask(ctx, testUser, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("AddTask(%+v) err = %v", in, err)
		}
	}
}

func TestEditTask_RewardCeiling(t *testing.T) {
	svc, _, _ := newService(t, false)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, testUser, engagement.NewTask{Week: 1, Topic: "Old", SubjectType: "CS", XPReward: domain.MaxTaskXPReward})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EditTask(ctx, testUser, engagement.TaskEdit{ID: task.ID, XPReward: domain.MaxTaskXPReward + 1}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("EditTask err = %v, want validation error", err)
	}
}

func TestEditAndDeleteTask(t *testing.T) {
	svc, _, _ := newService(t, false)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, testUser, engagement.NewTask{Week: 1, Topic: "Old", SubjectType: "CS", XPReward: 120})
	if err != nil {
		t.Fatal(err)
	}

	edited, err := svc.EditTask(ctx, testUser, engagement.TaskEdit{ID: task.ID, Topic: "New"})
	if err != nil {
		t.Fatal(err)
	}
	if edited.Topic != "New" || edited.XPReward != 120 || edited.Status != domain.TaskNotStarted {
		t.Errorf("edit topic = %+v", edited)
	}
	edited, err = svc.EditTask(ctx, testUser, engagement.TaskEdit{ID: task.ID, XPReward: 300})
	if err != nil {
		t.Fatal(err)
	}
	if edited.Topic != "New" || edited.XPReward != 300 {
		t.Errorf("edit reward = %+v", edited)
	}

	if _, err := svc.EditTask(ctx, testUser, engagement.TaskEdit{ID: task.ID}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty edit err = %v", err)
	}
	if _, err := svc.EditTask(ctx, testUser, engagement.TaskEdit{ID: "missing", Topic: "x"}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("missing edit err = %v", err)
	}

	if err := svc.DeleteTask(ctx, testUser, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank delete err = %v", err)
	}
	if err := svc.DeleteTask(ctx, testUser, task.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTask(ctx, testUser, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Dashboard / Analytics Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestDashboard(t *testing.T) {
	svc, clk, _ := newService(t, true)
	ctx := context.Background()

	// One old session outside the window, two recent ones.
	if _, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 10, Difficulty: 1}); err != nil {
		t.Fatal(err)
	}
	clk.Advance(10 * 24 * time.Hour)
	for i := 0; i < 2; i++ {
		clk.Advance(time.Hour)
		if _, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 20, Difficulty: 2}); err != nil {
			t.Fatal(err)
		}
	}

	plan, _ := svc.LearningPlan(ctx, testUser)
	for _, tk := range plan[1] {
		if _, err := svc.UpdateTaskStatus(ctx, testUser, tk.ID, domain.TaskInProgress); err != nil {
			t.Fatal(err)
		}
	}

	d, err := svc.Dashboard(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.RecentLogs) != 2 {
		t.Errorf("recent logs = %d, want 2", len(d.RecentLogs))
	}
	if !d.RecentLogs[0].CreatedAt.After(d.RecentLogs[1].CreatedAt) {
		t.Error("recent logs should be newest first")
	}
	if len(d.TodayTasks) != 3 {
		t.Errorf("today tasks = %d, want 3", len(d.TodayTasks))
	}
	if d.MotivationalMessage != "keep going" {
		t.Errorf("message = %q", d.MotivationalMessage)
	}
	if d.User.CurrentXP != 10+2*400 || d.Progress.Level != d.User.CurrentLevel {
		t.Errorf("user = %+v progress = %+v", d.User, d.Progress)
	}
	if d.Streak.CurrentStreak != 1 || len(d.Badges) == 0 {
		t.Errorf("streak = %+v badges = %d", d.Streak, len(d.Badges))
	}
}

func TestAnalyticsAndCoachInput(t *testing.T) {
	svc, clk, _ := newService(t, true)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if _, err := svc.LogStudy(ctx, testUser, engagement.SessionInput{TimeSpent: 30, Difficulty: 3}); err != nil {
			t.Fatal(err)
		}
		clk.Advance(24 * time.Hour)
	}

	sum, err := svc.Analytics(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalSessions != 12 || sum.TotalTasks != 20 || sum.CompletionPercentage != 0 {
		t.Errorf("summary = %d sessions %d tasks %d%%", sum.TotalSessions, sum.TotalTasks, sum.CompletionPercentage)
	}
	if len(sum.WeakSubjects) != 3 {
		t.Errorf("weak subjects = %v", sum.WeakSubjects)
	}
	if sum.Logs[0].Date > sum.Logs[11].Date {
		t.Error("analytics logs should be ascending")
	}

	req, err := svc.CoachInput(ctx, testUser, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Logs) != 10 || req.Logs[0].Date < req.Logs[9].Date {
		t.Errorf("coach logs = %d, newest first expected", len(req.Logs))
	}
	if len(req.LearningPlan) != 4 || req.UserData.ID != testUser {
		t.Errorf("coach request = %+v", req.UserData)
	}

	all, err := svc.CoachInput(ctx, testUser, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Logs) != 12 {
		t.Errorf("unbounded coach logs = %d", len(all.Logs))
	}
}
