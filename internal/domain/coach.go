package domain

import "encoding/json"

// ─── Coach Contract ─────────────────────────────────────────────────────────
// Field names follow the external coaching collaborator's wire format.

// CoachRequest is the structured input handed to a coach.
// LearningPlan is keyed by week number.
type CoachRequest struct {
	UserData     User               `json:"user_data"`
	Logs         []DailyLog         `json:"logs"`
	LearningPlan map[int][]PlanTask `json:"learning_plan"`
}

// Patterns summarizes study behavior detected from the logs.
type Patterns struct {
	TotalSessions     int     `json:"total_sessions"`
	AvgTimePerSession float64 `json:"avg_time_per_session"`
	AvgDifficulty     float64 `json:"avg_difficulty"`
	ConsistencyScore  float64 `json:"consistency_score"`
	BurnoutRisk       bool    `json:"burnout_risk"`
	SkipDetection     bool    `json:"skip_detection"`
	TotalStudyTime    int     `json:"total_study_time"`
}

// WeakSubject is a subject below the completion threshold.
// CompletionRate is a percentage with one decimal.
type WeakSubject struct {
	Subject        string  `json:"subject"`
	CompletionRate float64 `json:"completion_rate"`
}

// CoachingReport is the result of a full behavior analysis.
type CoachingReport struct {
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Coaching     string        `json:"coaching"`
	Patterns     *Patterns     `json:"patterns"` // nil encodes as {}
	WeakSubjects []WeakSubject `json:"weak_subjects"`
}

// MarshalJSON writes a report without detected patterns as "patterns": {}.
func (r CoachingReport) MarshalJSON() ([]byte, error) {
	type plain CoachingReport
	out := struct {
		plain
		Patterns any `json:"patterns"`
	}{plain: plain(r), Patterns: r.Patterns}
	if r.Patterns == nil {
		out.Patterns = struct{}{}
	}
	return json.Marshal(out)
}

// Suggestion is a one-line daily study suggestion.
type Suggestion struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion"`
}
