package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// Store provides the task persistence queries.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open database.
func NewStore(d *Database) *Store {
	return &Store{db: d.DB}
}

// CreateTask records a submitted task as pending.
func (s *Store) CreateTask(ctx context.Context, id, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, status) VALUES (?, ?, ?)
	`, id, kind, StatusPending)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// CompleteTask marks a task finished, with an optional error message and
// exported policy.
func (s *Store) CompleteTask(ctx context.Context, id, status, errMsg, policyCode string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, error = NULLIF(?, ''), policy_code = NULLIF(?, ''),
		    completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, errMsg, policyCode, id)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

// SaveSignals stores a run's full signal log in one transaction.
func (s *Store) SaveSignals(ctx context.Context, rows []SignalRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO task_signals
			(task_id, seq, time, action, price, size, reason, order_id, order_type, limit_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.TaskID, r.Seq, r.Time, r.Action,
			r.Price, r.Size, r.Reason, r.OrderID, r.OrderType, r.LimitPrice); err != nil {
			return fmt.Errorf("insert signal %d: %w", r.Seq, err)
		}
	}
	return tx.Commit()
}

// SaveEpisode stores one training progress record.
func (s *Store) SaveEpisode(ctx context.Context, r EpisodeRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_episodes (task_id, episode, total_reward, epsilon, win_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(task_id, episode) DO UPDATE SET
			total_reward = excluded.total_reward,
			epsilon = excluded.epsilon,
			win_rate = excluded.win_rate
	`, r.TaskID, r.Episode, r.TotalReward, r.Epsilon, r.WinRate)
	return err
}

// GetTask fetches one task by id.
func (s *Store) GetTask(ctx context.Context, id string) (TaskRow, error) {
	var t TaskRow
	var errMsg, policy sql.NullString
	var completed sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, status, error, policy_code, submitted_at, completed_at
		FROM tasks WHERE id = ?
	`, id).Scan(&t.ID, &t.Kind, &t.Status, &errMsg, &policy, &t.SubmittedAt, &completed)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("query task: %w", err)
	}
	t.Error = errMsg.String
	t.PolicyCode = policy.String
	if completed.Valid {
		t.CompletedAt = &completed.Time
	}
	return t, nil
}

// ListTasks returns recent tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, limit int) ([]TaskRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, status, error, policy_code, submitted_at, completed_at
		FROM tasks
		ORDER BY submitted_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var t TaskRow
		var errMsg, policy sql.NullString
		var completed sql.NullTime
		if err := rows.Scan(&t.ID, &t.Kind, &t.Status, &errMsg, &policy, &t.SubmittedAt, &completed); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Error = errMsg.String
		t.PolicyCode = policy.String
		if completed.Valid {
			t.CompletedAt = &completed.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetSignals returns a run's signal log in emission order.
func (s *Store) GetSignals(ctx context.Context, taskID string) ([]SignalRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, seq, time, action, price, size,
		       COALESCE(reason, ''), COALESCE(order_id, ''), COALESCE(order_type, ''), COALESCE(limit_price, 0)
		FROM task_signals
		WHERE task_id = ?
		ORDER BY seq
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRow
	for rows.Next() {
		var r SignalRow
		if err := rows.Scan(&r.TaskID, &r.Seq, &r.Time, &r.Action, &r.Price,
			&r.Size, &r.Reason, &r.OrderID, &r.OrderType, &r.LimitPrice); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetEpisodes returns a training run's progress records in episode order.
func (s *Store) GetEpisodes(ctx context.Context, taskID string) ([]EpisodeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, episode, total_reward, epsilon, win_rate
		FROM training_episodes
		WHERE task_id = ?
		ORDER BY episode
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeRow
	for rows.Next() {
		var r EpisodeRow
		if err := rows.Scan(&r.TaskID, &r.Episode, &r.TotalReward, &r.Epsilon, &r.WinRate); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
