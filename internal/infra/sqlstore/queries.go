package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/learnquest/learnquest/internal/domain"
)

// queries implements domain.Repository over a pool or a transaction.
type queries struct {
	q       DBTX
	dialect Dialect
	inTx    bool
}

var _ domain.Repository = (*queries)(nil)

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func (r *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, rebind(r.dialect, query), args...)
}

func (r *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, rebind(r.dialect, query), args...)
}

func (r *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, rebind(r.dialect, query), args...)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// ─── Users ──────────────────────────────────────────────────────────────────

// CreateUser inserts u unless a user with the same id exists.
func (r *queries) CreateUser(ctx context.Context, u domain.User) (bool, error) {
	level := u.CurrentLevel
	if level < 1 {
		level = 1
	}
	res, err := r.exec(ctx,
		`INSERT INTO users (id, username, current_xp, current_level, created_at)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		string(u.ID), u.Username, u.CurrentXP, level, toMillis(u.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetUser returns the user or domain.ErrUserNotFound.
func (r *queries) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var (
		u       domain.User
		uid     string
		created int64
	)
	err := r.queryRow(ctx,
		`SELECT id, username, current_xp, current_level, created_at FROM users WHERE id = ?`,
		string(id),
	).Scan(&uid, &u.Username, &u.CurrentXP, &u.CurrentLevel, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.ID = domain.UserID(uid)
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

// UpdateUserProgress stores new XP and level totals.
func (r *queries) UpdateUserProgress(ctx context.Context, id domain.UserID, xp int64, level int) error {
	res, err := r.exec(ctx,
		`UPDATE users SET current_xp = ?, current_level = ? WHERE id = ?`,
		xp, level, string(id),
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id))
}

// LockUser takes a row lock on the user for the rest of the transaction.
// SQLite has no row locks; its single connection already serializes writers.
func (r *queries) LockUser(ctx context.Context, id domain.UserID) error {
	query := `SELECT id FROM users WHERE id = ?`
	if r.dialect == Postgres && r.inTx {
		query += ` FOR UPDATE`
	}
	var got string
	err := r.queryRow(ctx, query, string(id)).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
	}
	return err
}

// ─── Daily Logs ─────────────────────────────────────────────────────────────

const logColumns = `id, user_id, log_date, time_spent, difficulty, mood, energy, freelance_load, notes, xp_earned, created_at`

// InsertLog appends a session.
func (r *queries) InsertLog(ctx context.Context, l domain.DailyLog) error {
	_, err := r.exec(ctx,
		`INSERT INTO daily_logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, string(l.UserID), string(l.Date), l.TimeSpent, l.Difficulty,
		l.Mood, l.Energy, l.FreelanceLoad, l.Notes, l.XPEarned, toMillis(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// ListLogs returns the user's logs ordered by day then creation time.
func (r *queries) ListLogs(ctx context.Context, id domain.UserID, f domain.LogFilter) ([]domain.DailyLog, error) {
	var (
		b    strings.Builder
		args = []any{string(id)}
	)
	b.WriteString(`SELECT ` + logColumns + ` FROM daily_logs WHERE user_id = ?`)
	if !f.Since.IsZero() {
		b.WriteString(` AND log_date >= ?`)
		args = append(args, string(f.Since))
	}
	if f.Desc {
		b.WriteString(` ORDER BY log_date DESC, created_at DESC`)
	} else {
		b.WriteString(` ORDER BY log_date ASC, created_at ASC`)
	}
	if f.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := r.query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.DailyLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func scanLog(s scanner) (domain.DailyLog, error) {
	var (
		l        domain.DailyLog
		uid, day string
		created  int64
	)
	if err := s.Scan(&l.ID, &uid, &day, &l.TimeSpent, &l.Difficulty,
		&l.Mood, &l.Energy, &l.FreelanceLoad, &l.Notes, &l.XPEarned, &created); err != nil {
		return l, fmt.Errorf("scan log: %w", err)
	}
	l.UserID = domain.UserID(uid)
	l.Date = domain.Date(day)
	l.CreatedAt = fromMillis(created)
	return l, nil
}

// CountLogs returns how many sessions the user has logged.
func (r *queries) CountLogs(ctx context.Context, id domain.UserID) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM daily_logs WHERE user_id = ?`, string(id)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}

// MinutesOn sums the time logged on one day.
func (r *queries) MinutesOn(ctx context.Context, id domain.UserID, day domain.Date) (int, error) {
	var n int
	err := r.queryRow(ctx,
		`SELECT COALESCE(SUM(time_spent), 0) FROM daily_logs WHERE user_id = ? AND log_date = ?`,
		string(id), string(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sum minutes: %w", err)
	}
	return n, nil
}

// ─── Streaks ────────────────────────────────────────────────────────────────

// GetStreak returns the stored streak, or a zero streak when none exists.
func (r *queries) GetStreak(ctx context.Context, id domain.UserID) (domain.Streak, error) {
	s := domain.Streak{UserID: id}
	var last string
	err := r.queryRow(ctx,
		`SELECT current_streak, longest_streak, last_log_date FROM streaks WHERE user_id = ?`,
		string(id),
	).Scan(&s.CurrentStreak, &s.LongestStreak, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("query streak: %w", err)
	}
	s.LastLogDate = domain.Date(last)
	return s, nil
}

// SaveStreak upserts the user's streak row.
func (r *queries) SaveStreak(ctx context.Context, s domain.Streak) error {
	_, err := r.exec(ctx,
		`INSERT INTO streaks (user_id, current_streak, longest_streak, last_log_date)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_log_date  = excluded.last_log_date`,
		string(s.UserID), s.CurrentStreak, s.LongestStreak, string(s.LastLogDate),
	)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// ListBadges returns earned badges, newest first.
func (r *queries) ListBadges(ctx context.Context, id domain.UserID) ([]domain.Badge, error) {
	rows, err := r.query(ctx,
		`SELECT id, user_id, badge_type, badge_name, earned_at FROM badges
		 WHERE user_id = ? ORDER BY earned_at DESC, badge_type ASC`,
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("query badges: %w", err)
	}
	defer rows.Close()

	badges := []domain.Badge{}
	for rows.Next() {
		var (
			b         domain.Badge
			uid, kind string
			earned    int64
		)
		if err := rows.Scan(&b.ID, &uid, &kind, &b.BadgeName, &earned); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		b.UserID = domain.UserID(uid)
		b.BadgeType = domain.BadgeType(kind)
		b.EarnedAt = fromMillis(earned)
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// InsertBadges writes each badge unless the user already holds its type.
func (r *queries) InsertBadges(ctx context.Context, badges []domain.Badge) (int, error) {
	inserted := 0
	for _, b := range badges {
		res, err := r.exec(ctx,
			`INSERT INTO badges (id, user_id, badge_type, badge_name, earned_at)
			 VALUES (?, ?, ?, ?, ?) ON CONFLICT (user_id, badge_type) DO NOTHING`,
			b.ID, string(b.UserID), string(b.BadgeType), b.BadgeName, toMillis(b.EarnedAt),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert badge %s: %w", b.BadgeType, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insert badge %s: %w", b.BadgeType, err)
		}
		if n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// ─── Plan Tasks ─────────────────────────────────────────────────────────────

const taskColumns = `id, user_id, week, topic, subject_type, status, xp_reward, xp_granted, created_at`

// InsertTasks adds tasks to a plan.
func (r *queries) InsertTasks(ctx context.Context, tasks ...domain.PlanTask) error {
	for _, t := range tasks {
		status := t.Status
		if status == "" {
			status = domain.TaskNotStarted
		}
		_, err := r.exec(ctx,
			`INSERT INTO plan_tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, string(t.UserID), t.Week, t.Topic, t.SubjectType, string(status),
			t.XPReward, t.XPGranted, toMillis(t.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", t.Topic, err)
		}
	}
	return nil
}

// GetTask returns one task or domain.ErrTaskNotFound.
func (r *queries) GetTask(ctx context.Context, id domain.UserID, taskID string) (*domain.PlanTask, error) {
	row := r.queryRow(ctx,
		`SELECT `+taskColumns+` FROM plan_tasks WHERE user_id = ? AND id = ?`,
		string(id), taskID,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns tasks ordered by week then creation time.
func (r *queries) ListTasks(ctx context.Context, id domain.UserID, f domain.TaskFilter) ([]domain.PlanTask, error) {
	var (
		b    strings.Builder
		args = []any{string(id)}
	)
	b.WriteString(`SELECT ` + taskColumns + ` FROM plan_tasks WHERE user_id = ?`)
	if f.Status != "" {
		b.WriteString(` AND status = ?`)
		args = append(args, string(f.Status))
	}
	b.WriteString(` ORDER BY week ASC, created_at ASC`)
	if f.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := r.query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.PlanTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(s scanner) (domain.PlanTask, error) {
	var (
		t           domain.PlanTask
		uid, status string
		created     int64
	)
	if err := s.Scan(&t.ID, &uid, &t.Week, &t.Topic, &t.SubjectType, &status,
		&t.XPReward, &t.XPGranted, &created); err != nil {
		return t, err
	}
	t.UserID = domain.UserID(uid)
	t.Status = domain.TaskStatus(status)
	t.CreatedAt = fromMillis(created)
	return t, nil
}

// CountTasks returns the size of the user's plan.
func (r *queries) CountTasks(ctx context.Context, id domain.UserID) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM plan_tasks WHERE user_id = ?`, string(id)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// UpdateTaskStatus sets a task's status.
func (r *queries) UpdateTaskStatus(ctx context.Context, id domain.UserID, taskID string, status domain.TaskStatus) error {
	res, err := r.exec(ctx,
		`UPDATE plan_tasks SET status = ? WHERE user_id = ? AND id = ?`,
		string(status), string(id), taskID,
	)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID))
}

// MarkTaskRewarded records that a task's completion XP has been paid.
func (r *queries) MarkTaskRewarded(ctx context.Context, id domain.UserID, taskID string) error {
	res, err := r.exec(ctx,
		`UPDATE plan_tasks SET xp_granted = ? WHERE user_id = ? AND id = ?`,
		true, string(id), taskID,
	)
	if err != nil {
		return fmt.Errorf("mark task rewarded: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID))
}

// UpdateTaskDetails replaces topic and reward.
func (r *queries) UpdateTaskDetails(ctx context.Context, id domain.UserID, taskID, topic string, xpReward int64) error {
	res, err := r.exec(ctx,
		`UPDATE plan_tasks SET topic = ?, xp_reward = ? WHERE user_id = ? AND id = ?`,
		topic, xpReward, string(id), taskID,
	)
	if err != nil {
		return fmt.Errorf("update task details: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID))
}

// DeleteTask removes a task.
func (r *queries) DeleteTask(ctx context.Context, id domain.UserID, taskID string) error {
	res, err := r.exec(ctx, `DELETE FROM plan_tasks WHERE user_id = ? AND id = ?`, string(id), taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID))
}

// expectOne returns notFound when res touched no rows.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
