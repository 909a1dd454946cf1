package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskboard/apperrors"
	"taskboard/models"
)

// TaskStore keeps tasks in a SQL database. Every statement filters by
// user_id.
type TaskStore struct {
	db     *sql.DB
	driver string
}

func NewTaskStore(db *sql.DB, driver string) *TaskStore {
	return &TaskStore{db: db, driver: driver}
}

const taskColumns = `id, user_id, title, description, status, priority,
	estimated_hours, actual_hours, due_date, created_at, updated_at`

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t                    models.Task
		createdAt, updatedAt int64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.EstimatedHours, &t.ActualHours, &t.DueDate, &createdAt, &updatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

// List returns the user's tasks, newest first.
func (s *TaskStore) List(ctx context.Context, userID string) ([]models.Task, error) {
	const op = "database.List"

	query := rebind(s.driver, `SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.E(apperrors.KindInternal, op, fmt.Errorf("query tasks: %w", err))
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, apperrors.E(apperrors.KindInternal, op, fmt.Errorf("scan task: %w", err))
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.E(apperrors.KindInternal, op, fmt.Errorf("iterate tasks: %w", err))
	}
	return tasks, nil
}

// Get returns one task. A task owned by someone else is reported as missing.
func (s *TaskStore) Get(ctx context.Context, userID, id string) (models.Task, error) {
	const op = "database.Get"

	query := rebind(s.driver, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`)
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperrors.E(apperrors.KindNotFound, op, fmt.Errorf("task %s", id))
	}
	if err != nil {
		return models.Task{}, apperrors.E(apperrors.KindInternal, op, fmt.Errorf("query task: %w", err))
	}
	return t, nil
}

func (s *TaskStore) Insert(ctx context.Context, t models.Task) error {
	const op = "database.Insert"

	query := rebind(s.driver, `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Title, t.Description, string(t.Status), string(t.Priority),
		t.EstimatedHours, t.ActualHours, t.DueDate, toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if err != nil {
		return apperrors.E(apperrors.KindInternal, op, fmt.Errorf("insert task: %w", err))
	}
	return nil
}

// Update rewrites the mutable columns of a task matched by id and owner.
func (s *TaskStore) Update(ctx context.Context, t models.Task) error {
	const op = "database.Update"

	query := rebind(s.driver, `UPDATE tasks SET
		title = ?, description = ?, status = ?, priority = ?,
		estimated_hours = ?, actual_hours = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		t.Title, t.Description, string(t.Status), string(t.Priority),
		t.EstimatedHours, t.ActualHours, t.DueDate, toMillis(t.UpdatedAt),
		t.ID, t.UserID)
	if err != nil {
		return apperrors.E(apperrors.KindInternal, op, fmt.Errorf("update task: %w", err))
	}
	return requireRow(op, t.ID, res)
}

func (s *TaskStore) Delete(ctx context.Context, userID, id string) error {
	const op = "database.Delete"

	query := rebind(s.driver, `DELETE FROM tasks WHERE id = ? AND user_id = ?`)
	res, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return apperrors.E(apperrors.KindInternal, op, fmt.Errorf("delete task: %w", err))
	}
	return requireRow(op, id, res)
}

func requireRow(op, id string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.E(apperrors.KindInternal, op, fmt.Errorf("rows affected: %w", err))
	}
	if n == 0 {
		return apperrors.E(apperrors.KindNotFound, op, fmt.Errorf("task %s", id))
	}
	return nil
}

// Ping reports whether the database answers.
func (s *TaskStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
