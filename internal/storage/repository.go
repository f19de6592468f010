package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goalpad/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (core.Session, error) {
	var s core.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`,
		token).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count expired sessions: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertGoal(ctx, tx, g); err != nil {
		return err
	}
	if err := insertExceptions(ctx, tx, g.ID, g.Exceptions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved to SQLite",
		"id", g.ID,
		"title", g.Title,
		"recurrence", string(g.Recurrence))
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, goalID string) (core.Goal, error) {
	return scanGoal(ctx, r.db, userID, goalID)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, category, priority, deadline, start_time, end_time, completed, recurrence, created_at
		 FROM goals WHERE user_id = ? ORDER BY deadline, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoalRow(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}

	for i := range goals {
		exceptions, err := loadExceptions(ctx, r.db, goals[i].ID)
		if err != nil {
			return nil, err
		}
		goals[i].Exceptions = exceptions
	}
	return goals, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, goalID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND user_id = ?`, goalID, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("count deleted goals: %w", err)
	}
	if n == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func (r *SQLiteRepository) MutateGoal(ctx context.Context, userID, goalID string, fn func(*core.Goal) error) (core.Goal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Goal{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	g, err := scanGoal(ctx, tx, userID, goalID)
	if err != nil {
		return core.Goal{}, err
	}

	if err := fn(&g); err != nil {
		return core.Goal{}, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE goals SET title = ?, category = ?, priority = ?, deadline = ?, start_time = ?, end_time = ?, completed = ?, recurrence = ?
		 WHERE id = ? AND user_id = ?`,
		g.Title, g.Category, string(g.Priority), g.Deadline.UTC(), g.StartTime, g.EndTime, g.Completed, string(g.Recurrence),
		goalID, userID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM goal_exceptions WHERE goal_id = ?`, goalID); err != nil {
		return core.Goal{}, fmt.Errorf("clear goal exceptions: %w", err)
	}
	if err := insertExceptions(ctx, tx, goalID, g.Exceptions); err != nil {
		return core.Goal{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Goal{}, fmt.Errorf("commit mutate goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM goals ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) SaveStatsSnapshot(ctx context.Context, userID string, payload []byte, refreshedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stats_snapshots (user_id, payload, refreshed_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, refreshed_at = excluded.refreshed_at`,
		userID, string(payload), refreshedAt.UTC())
	if err != nil {
		return fmt.Errorf("save stats snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetStatsSnapshot(ctx context.Context, userID string) ([]byte, time.Time, error) {
	var payload string
	var refreshedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, refreshed_at FROM stats_snapshots WHERE user_id = ?`,
		userID).Scan(&payload, &refreshedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get stats snapshot: %w", err)
	}
	return []byte(payload), refreshedAt, nil
}

// querier lets goal reads run against either the pool or an open transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertGoal(ctx context.Context, tx execer, g core.Goal) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, title, category, priority, deadline, start_time, end_time, completed, recurrence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, g.Category, string(g.Priority), g.Deadline.UTC(),
		g.StartTime, g.EndTime, g.Completed, string(g.Recurrence), g.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func insertExceptions(ctx context.Context, tx execer, goalID string, exceptions []core.Exception) error {
	for i, ex := range exceptions {
		var override sql.NullString
		if ex.Override != nil {
			raw, err := json.Marshal(ex.Override)
			if err != nil {
				return fmt.Errorf("marshal exception override: %w", err)
			}
			override = sql.NullString{String: string(raw), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO goal_exceptions (goal_id, position, date, type, override) VALUES (?, ?, ?, ?, ?)`,
			goalID, i, ex.Date, string(ex.Type), override)
		if err != nil {
			return fmt.Errorf("insert goal exception: %w", err)
		}
	}
	return nil
}

func scanGoal(ctx context.Context, q querier, userID, goalID string) (core.Goal, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, user_id, title, category, priority, deadline, start_time, end_time, completed, recurrence, created_at
		 FROM goals WHERE id = ? AND user_id = ?`, goalID, userID)

	g, err := scanGoalRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, ErrGoalNotFound
	}
	if err != nil {
		return core.Goal{}, err
	}

	exceptions, err := loadExceptions(ctx, q, g.ID)
	if err != nil {
		return core.Goal{}, err
	}
	g.Exceptions = exceptions
	return g, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoalRow(row rowScanner) (core.Goal, error) {
	var g core.Goal
	var priority, recurrence string
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Category, &priority,
		&g.Deadline, &g.StartTime, &g.EndTime, &g.Completed, &recurrence, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, err
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	g.Priority = core.Priority(priority)
	g.Recurrence = core.Recurrence(recurrence)
	return g, nil
}

func loadExceptions(ctx context.Context, q querier, goalID string) ([]core.Exception, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT date, type, override FROM goal_exceptions WHERE goal_id = ? ORDER BY position`, goalID)
	if err != nil {
		return nil, fmt.Errorf("load goal exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []core.Exception
	for rows.Next() {
		var ex core.Exception
		var typ string
		var override sql.NullString
		if err := rows.Scan(&ex.Date, &typ, &override); err != nil {
			return nil, fmt.Errorf("scan goal exception: %w", err)
		}
		ex.Type = core.ExceptionType(typ)
		if override.Valid {
			var o core.Override
			if err := json.Unmarshal([]byte(override.String), &o); err != nil {
				return nil, fmt.Errorf("unmarshal exception override: %w", err)
			}
			ex.Override = &o
		}
		exceptions = append(exceptions, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goal exceptions: %w", err)
	}
	return exceptions, nil
}
