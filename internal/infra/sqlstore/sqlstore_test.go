package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/learnquest/internal/domain"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// stores returns SQLite plus PostgreSQL when LEARNQUEST_TEST_POSTGRES_DSN
// points at a disposable database.
func stores(t *testing.T) map[string]*DB {
	t.Helper()
	out := map[string]*DB{"sqlite": testDB(t)}
	if dsn := os.Getenv("LEARNQUEST_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := OpenPostgres(dsn)
		require.NoError(t, err)
		t.Cleanup(func() { pg.Close() })
		out["postgres"] = pg
	}
	return out
}

var epoch = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, db *DB, id domain.UserID) {
	t.Helper()
	created, err := db.CreateUser(context.Background(), domain.User{ID: id, Username: "tester", CreatedAt: epoch})
	require.NoError(t, err)
	require.True(t, created)
}

// uniqueID keeps rows from different runs apart on a shared postgres.
func uniqueID(t *testing.T) domain.UserID {
	return domain.UserID(t.Name() + "-" + time.Now().Format("150405.000000000"))
}

func TestOpen_CreatesDatabaseAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Ping(context.Background()))
	require.NoError(t, db.Close())

	// Reopen runs the migrations again.
	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, SQLite, db.Dialect())
}

func TestOpenPostgres_RejectsBadDSN(t *testing.T) {
	_, err := OpenPostgres("")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = OpenPostgres("postgres://%zz")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b = ? LIMIT ?`
	assert.Equal(t, q, rebind(SQLite, q))
	assert.Equal(t, `SELECT * FROM t WHERE a = $1 AND b = $2 LIMIT $3`, rebind(Postgres, q))
}

func TestUsers(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t)

			_, err := db.GetUser(ctx, id)
			assert.ErrorIs(t, err, domain.ErrUserNotFound)

			seedUser(t, db, id)
			created, err := db.CreateUser(ctx, domain.User{ID: id, Username: "again", CreatedAt: epoch})
			require.NoError(t, err)
			assert.False(t, created, "second create must be a no-op")

			u, err := db.GetUser(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "tester", u.Username)
			assert.Equal(t, int64(0), u.CurrentXP)
			assert.Equal(t, 1, u.CurrentLevel)
			assert.True(t, u.CreatedAt.Equal(epoch))

			require.NoError(t, db.UpdateUserProgress(ctx, id, 4800, 7))
			u, err = db.GetUser(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, int64(4800), u.CurrentXP)
			assert.Equal(t, 7, u.CurrentLevel)

			assert.ErrorIs(t, db.UpdateUserProgress(ctx, "nobody", 1, 1), domain.ErrUserNotFound)
			assert.ErrorIs(t, db.LockUser(ctx, "nobody"), domain.ErrUserNotFound)
		})
	}
}

func TestLogs(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t)
			seedUser(t, db, id)

			insert := func(logID string, day domain.Date, minutes int, at time.Time) {
				require.NoError(t, db.InsertLog(ctx, domain.DailyLog{
					ID: logID, UserID: id, Date: day, TimeSpent: minutes, Difficulty: 2,
					Notes: "n", XPEarned: int64(minutes * 20), CreatedAt: at,
				}))
			}
			insert(string(id)+"-a", "2025-07-01", 30, epoch)
			insert(string(id)+"-b", "2025-07-03", 90, epoch.Add(48*time.Hour))
			insert(string(id)+"-c", "2025-07-03", 200, epoch.Add(49*time.Hour))

			n, err := db.CountLogs(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			minutes, err := db.MinutesOn(ctx, id, "2025-07-03")
			require.NoError(t, err)
			assert.Equal(t, 290, minutes)

			minutes, err = db.MinutesOn(ctx, id, "2025-07-02")
			require.NoError(t, err)
			assert.Zero(t, minutes)

			asc, err := db.ListLogs(ctx, id, domain.LogFilter{})
			require.NoError(t, err)
			require.Len(t, asc, 3)
			assert.Equal(t, string(id)+"-a", asc[0].ID)
			assert.Equal(t, string(id)+"-c", asc[2].ID)
			assert.Equal(t, "n", asc[0].Notes)
			assert.Equal(t, int64(600), asc[0].XPEarned)

			desc, err := db.ListLogs(ctx, id, domain.LogFilter{Desc: true, Limit: 2})
			require.NoError(t, err)
			require.Len(t, desc, 2)
			assert.Equal(t, string(id)+"-c", desc[0].ID)
			assert.Equal(t, string(id)+"-b", desc[1].ID)

			since, err := db.ListLogs(ctx, id, domain.LogFilter{Since: "2025-07-02"})
			require.NoError(t, err)
			assert.Len(t, since, 2)

			empty, err := db.ListLogs(ctx, "nobody", domain.LogFilter{})
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)
		})
	}
}

func TestStreaks(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t)
			seedUser(t, db, id)

			s, err := db.GetStreak(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.Streak{UserID: id}, s)

			require.NoError(t, db.SaveStreak(ctx, domain.Streak{UserID: id, CurrentStreak: 1, LongestStreak: 1, LastLogDate: "2025-07-01"}))
			require.NoError(t, db.SaveStreak(ctx, domain.Streak{UserID: id, CurrentStreak: 2, LongestStreak: 2, LastLogDate: "2025-07-02"}))

			s, err = db.GetStreak(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 2, s.CurrentStreak)
			assert.Equal(t, 2, s.LongestStreak)
			assert.Equal(t, domain.Date("2025-07-02"), s.LastLogDate)
		})
	}
}

func TestBadges_UniquePerType(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t)
			seedUser(t, db, id)

			batch := []domain.Badge{
				{ID: string(id) + "-1", UserID: id, BadgeType: domain.BadgeFirstStep, BadgeName: "First Step", EarnedAt: epoch},
				{ID: string(id) + "-2", UserID: id, BadgeType: domain.BadgeXP1000, BadgeName: "XP Collector", EarnedAt: epoch.Add(time.Second)},
			}
			n, err := db.InsertBadges(ctx, batch)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			dup := []domain.Badge{{ID: string(id) + "-3", UserID: id, BadgeType: domain.BadgeFirstStep, BadgeName: "First Step", EarnedAt: epoch}}
			n, err = db.InsertBadges(ctx, dup)
			require.NoError(t, err)
			assert.Zero(t, n)

			badges, err := db.ListBadges(ctx, id)
			require.NoError(t, err)
			require.Len(t, badges, 2)
			assert.Equal(t, domain.BadgeXP1000, badges[0].BadgeType, "newest first")
		})
	}
}

// errResult is a sql.Result whose counters are unavailable.
type errResult struct{}

func (errResult) LastInsertId() (int64, error) { return 0, errors.New("no insert id") }
func (errResult) RowsAffected() (int64, error) { return 0, errors.New("no row count") }

// execOnly answers every ExecContext with errResult.
type execOnly struct{ DBTX }

func (execOnly) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return errResult{}, nil
}

func TestInsertBadges_RowsAffectedError(t *testing.T) {
	r := &queries{q: execOnly{}, dialect: SQLite}
	n, err := r.InsertBadges(context.Background(), []domain.Badge{
		{ID: "b1", UserID: "u1", BadgeType: domain.BadgeFirstStep, BadgeName: "First Step", EarnedAt: time.Now()},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no row count")
	assert.Zero(t, n)
}

func TestTasks(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t)
			seedUser(t, db, id)

			tasks := []domain.PlanTask{
				{ID: string(id) + "-w2", UserID: id, Week: 2, Topic: "Stacks", SubjectType: "DSA", XPReward: 150, CreatedAt: epoch},
				{ID: string(id) + "-w1a", UserID: id, Week: 1, Topic: "Syntax", SubjectType: "Java", XPReward: 100, CreatedAt: epoch},
				{ID: string(id) + "-w1b", UserID: id, Week: 1, Topic: "Loops", SubjectType: "Java", Status: domain.TaskInProgress, XPReward: 100, CreatedAt: epoch.Add(time.Millisecond)},
			}
			require.NoError(t, db.InsertTasks(ctx, tasks...))

			n, err := db.CountTasks(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			all, err := db.ListTasks(ctx, id, domain.TaskFilter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "Syntax", all[0].Topic)
			assert.Equal(t, "Loops", all[1].Topic)
			assert.Equal(t, "Stacks", all[2].Topic)
			assert.Equal(t, domain.TaskNotStarted, all[0].Status, "blank status defaults")

			inProgress, err := db.ListTasks(ctx, id, domain.TaskFilter{Status: domain.TaskInProgress, Limit: 3})
			require.NoError(t, err)
			require.Len(t, inProgress, 1)
			assert.Equal(t, "Loops", inProgress[0].Topic)

			taskID := string(id) + "-w2"
			require.NoError(t, db.UpdateTaskStatus(ctx, id, taskID, domain.TaskCompleted))
			require.NoError(t, db.MarkTaskRewarded(ctx, id, taskID))
			require.NoError(t, db.UpdateTaskDetails(ctx, id, taskID, "Stack & Queue", 175))

			got, err := db.GetTask(ctx, id, taskID)
			require.NoError(t, err)
			assert.Equal(t, domain.TaskCompleted, got.Status)
			assert.True(t, got.XPGranted)
			assert.Equal(t, "Stack & Queue", got.Topic)
			assert.Equal(t, int64(175), got.XPReward)

			require.NoError(t, db.DeleteTask(ctx, id, taskID))
			_, err = db.GetTask(ctx, id, taskID)
			assert.ErrorIs(t, err, domain.ErrTaskNotFound)
			assert.ErrorIs(t, db.DeleteTask(ctx, id, taskID), domain.ErrTaskNotFound)
			assert.ErrorIs(t, db.UpdateTaskStatus(ctx, id, "missing", domain.TaskCompleted), domain.ErrTaskNotFound)

			// Scoped by user.
			_, err = db.GetTask(ctx, "someone-else", string(id)+"-w1a")
			assert.ErrorIs(t, err, domain.ErrTaskNotFound)
		})
	}
}

func TestWithinTx_CommitAndRollback(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uniqueID(t)
			seedUser(t, db, id)

			err := db.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
				require.NoError(t, repo.LockUser(ctx, id))
				return repo.UpdateUserProgress(ctx, id, 100, 2)
			})
			require.NoError(t, err)

			boom := errors.New("boom")
			err = db.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
				require.NoError(t, repo.UpdateUserProgress(ctx, id, 999, 4))
				return boom
			})
			assert.ErrorIs(t, err, boom)

			u, err := db.GetUser(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, int64(100), u.CurrentXP, "rolled back write must not persist")

			assert.Panics(t, func() {
				_ = db.WithinTx(ctx, func(ctx context.Context, repo domain.Repository) error {
					_ = repo.UpdateUserProgress(ctx, id, 5000, 8)
					panic("kaboom")
				})
			})
			u, err = db.GetUser(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, int64(100), u.CurrentXP)
		})
	}
}
