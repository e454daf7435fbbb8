package coach

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/learnquest/internal/domain"
)

func logOn(day domain.Date, minutes, difficulty int) domain.DailyLog {
	return domain.DailyLog{Date: day, TimeSpent: minutes, Difficulty: difficulty, CreatedAt: time.Now()}
}

func TestDetectPatterns_Empty(t *testing.T) {
	p := DetectPatterns(nil)
	assert.Equal(t, domain.Patterns{}, p)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_sessions":0,"avg_time_per_session":0,"avg_difficulty":0,
		"consistency_score":0,"burnout_risk":false,"skip_detection":false,"total_study_time":0}`, string(data))
}

func TestDetectPatterns_Averages(t *testing.T) {
	logs := []domain.DailyLog{
		logOn("2025-07-02", 45, 3),
		logOn("2025-07-01", 60, 2),
		logOn("2025-07-03", 50, 4),
	}
	p := DetectPatterns(logs)
	assert.Equal(t, 3, p.TotalSessions)
	assert.Equal(t, 51.7, p.AvgTimePerSession)
	assert.Equal(t, 3.0, p.AvgDifficulty)
	assert.Equal(t, 155, p.TotalStudyTime)
	assert.Equal(t, 42.9, p.ConsistencyScore) // 3/7
	assert.False(t, p.SkipDetection)
	assert.False(t, p.BurnoutRisk)
}

func TestDetectPatterns_Consistency(t *testing.T) {
	var logs []domain.DailyLog
	day := domain.Date("2025-07-01")
	for i := 0; i < 45; i++ {
		logs = append(logs, logOn(day, 30, 2))
		day, _ = day.AddDays(1)
	}
	assert.Equal(t, 100.0, DetectPatterns(logs).ConsistencyScore)
	assert.Equal(t, 50.0, DetectPatterns(logs[:15]).ConsistencyScore)
	assert.Equal(t, 23.3, DetectPatterns(logs[:7]).ConsistencyScore)
}

func TestDetectPatterns_SkipDetection(t *testing.T) {
	gap3 := []domain.DailyLog{logOn("2025-07-01", 30, 2), logOn("2025-07-04", 30, 2)}
	assert.False(t, DetectPatterns(gap3).SkipDetection)

	gap4 := []domain.DailyLog{logOn("2025-07-05", 30, 2), logOn("2025-07-01", 30, 2)}
	assert.True(t, DetectPatterns(gap4).SkipDetection)
}

func TestDetectPatterns_BurnoutUsesMostRecentWeek(t *testing.T) {
	// Three intense sessions, but older than the last seven.
	var logs []domain.DailyLog
	day := domain.Date("2025-07-01")
	for i := 0; i < 10; i++ {
		if i < 3 {
			logs = append(logs, logOn(day, 200, 5))
		} else {
			logs = append(logs, logOn(day, 30, 2))
		}
		day, _ = day.AddDays(1)
	}
	assert.False(t, DetectPatterns(logs).BurnoutRisk)

	logs[9] = logOn(logs[9].Date, 180, 4)
	logs[8] = logOn(logs[8].Date, 240, 4)
	logs[7] = logOn(logs[7].Date, 180, 5)
	assert.True(t, DetectPatterns(logs).BurnoutRisk)
}

func TestFindWeakSubjects(t *testing.T) {
	plan := map[int][]domain.PlanTask{
		1: {
			{SubjectType: "Java", Status: domain.TaskCompleted},
			{SubjectType: "Java", Status: domain.TaskNotStarted},
			{SubjectType: "Java", Status: domain.TaskNotStarted},
			{SubjectType: "Java", Status: domain.TaskNotStarted},
		},
		2: {
			{SubjectType: "DSA", Status: domain.TaskCompleted},
			{SubjectType: "DSA", Status: domain.TaskCompleted},
		},
	}
	weak := FindWeakSubjects(plan, 0.3)
	require.Len(t, weak, 1)
	assert.Equal(t, domain.WeakSubject{Subject: "Java", CompletionRate: 25}, weak[0])

	assert.Empty(t, FindWeakSubjects(nil, 0.3))
	assert.NotNil(t, FindWeakSubjects(nil, 0.3))
}

func TestBuildContext(t *testing.T) {
	req := domain.CoachRequest{
		UserData: domain.User{CurrentLevel: 3, CurrentXP: 650},
		Logs:     []domain.DailyLog{logOn("2025-07-01", 60, 3)},
		LearningPlan: map[int][]domain.PlanTask{
			1: {{SubjectType: "Java", Status: domain.TaskCompleted}, {SubjectType: "Java"}},
		},
	}
	patterns := domain.Patterns{AvgTimePerSession: 60, AvgDifficulty: 3, ConsistencyScore: 14.3, TotalStudyTime: 60, BurnoutRisk: true}
	weak := []domain.WeakSubject{{Subject: "CS", CompletionRate: 12.5}}

	text := BuildContext(req, &patterns, weak)
	for _, want := range []string{
		"- Current Level: 3",
		"- Total XP: 650",
		"1/2 tasks completed",
		"last 1 sessions",
		"Consistency score: 14.3%",
		"burnout risk",
		"- CS: 12.5% completed",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "Irregular study schedule")

	bare := BuildContext(req, nil, nil)
	assert.False(t, strings.Contains(bare, "Average study time"))
}
