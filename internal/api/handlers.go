package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/learnquest/learnquest/internal/app/coach"
	"github.com/learnquest/learnquest/internal/app/engagement"
	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/health"
)

const (
	maxBodyBytes    = 1 << 20
	suggestionLogs  = 10
	allLogs         = 0
	healthStatusOK  = "ok"
	healthStatusBad = "unhealthy"
)

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Validation("body", "invalid JSON: %v", err)
	}
	return nil
}

// ─── Health ─────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": healthStatusOK, "checks": []health.Status{}})
		return
	}
	statuses := s.checker.Refresh(r.Context())
	status, code := healthStatusOK, http.StatusOK
	if !health.Healthy(statuses) {
		status, code = healthStatusBad, http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": statuses})
}

// ─── Reads ──────────────────────────────────────────────────────────────────

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.engage.Dashboard(r.Context(), userFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engage.Analytics(r.Context(), userFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleLearningPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.engage.LearningPlan(r.Context(), userFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weekPlan(plan))
}

// weekPlan encodes a plan with week keys in numeric order. encoding/json
// would sort "10" before "2".
type weekPlan map[int][]domain.PlanTask

func (p weekPlan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, week := range engagement.Weeks(p) {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(week)))
		buf.WriteByte(':')
		tasks := p[week]
		if tasks == nil {
			tasks = []domain.PlanTask{}
		}
		data, err := json.Marshal(tasks)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ─── Session logging ────────────────────────────────────────────────────────

type logStudyRequest struct {
	TimeSpent     flexInt `json:"timeSpent"`
	Difficulty    flexInt `json:"difficulty"`
	Mood          string  `json:"mood"`
	Energy        string  `json:"energy"`
	FreelanceLoad string  `json:"freelanceLoad"`
	Notes         string  `json:"notes"`
}

func (s *Server) handleLogStudy(w http.ResponseWriter, r *http.Request) {
	var req logStudyRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.engage.LogStudy(r.Context(), userFrom(r), engagement.SessionInput{
		TimeSpent:     req.TimeSpent.Int(),
		Difficulty:    req.Difficulty.Int(),
		Mood:          req.Mood,
		Energy:        req.Energy,
		FreelanceLoad: req.FreelanceLoad,
		Notes:         req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*engagement.SessionResult
	}{true, result})
}

// ─── Plan writes ────────────────────────────────────────────────────────────

type updateTaskRequest struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	upd, err := s.engage.UpdateTaskStatus(r.Context(), userFrom(r), req.TaskID, domain.TaskStatus(req.Status))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := map[string]any{
		"success": true,
		"data":    upd.Task,
	}
	if upd.Completed {
		resp["xpEarned"] = upd.XPEarned
		resp["newXP"] = upd.NewXP
		resp["newLevel"] = upd.NewLevel
	}
	writeJSON(w, http.StatusOK, resp)
}

type addTaskRequest struct {
	Week        flexInt `json:"week"`
	Topic       string  `json:"topic"`
	SubjectType string  `json:"subjectType"`
	XPReward    flexInt `json:"xpReward"`
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	task, err := s.engage.AddTask(r.Context(), userFrom(r), engagement.NewTask{
		Week:        req.Week.Int(),
		Topic:       req.Topic,
		SubjectType: req.SubjectType,
		XPReward:    req.XPReward.Value,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": task})
}

type editTaskRequest struct {
	ID       string  `json:"id"`
	Topic    string  `json:"topic"`
	XPReward flexInt `json:"xpReward"`
}

func (s *Server) handleEditTask(w http.ResponseWriter, r *http.Request) {
	var req editTaskRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	task, err := s.engage.EditTask(r.Context(), userFrom(r), engagement.TaskEdit{
		ID:       req.ID,
		Topic:    req.Topic,
		XPReward: req.XPReward.Value,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": task})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.engage.DeleteTask(r.Context(), userFrom(r), r.URL.Query().Get("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ─── Coach ──────────────────────────────────────────────────────────────────

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	req, err := s.engage.CoachInput(r.Context(), userFrom(r), allLogs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.coach == nil {
		writeJSON(w, http.StatusOK, coach.AnalyzeFallback(domain.ErrCoachUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, s.coach.Analyze(r.Context(), req))
}

func (s *Server) handleDailySuggestion(w http.ResponseWriter, r *http.Request) {
	req, err := s.engage.CoachInput(r.Context(), userFrom(r), suggestionLogs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.coach == nil {
		writeJSON(w, http.StatusOK, coach.SuggestionFallback())
		return
	}
	writeJSON(w, http.StatusOK, s.coach.DailySuggestion(r.Context(), req))
}
