// Package sqlite is the embedded Task Store backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/migrations"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/sqlbuild"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// timeLayout has a fixed width so that lexical order of stored values is time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const queryTimeout = 5 * time.Second

type TaskRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open opens (creating if needed) the database at path and applies migrations.
// ":memory:" gives a private in-memory store.
func Open(ctx context.Context, path string) (*TaskRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer; it also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := migrations.Up(ctx, db, goose.DialectSQLite3); err != nil {
		db.Close()
		return nil, err
	}

	return &TaskRepository{db: db, logger: logger.Log}, nil
}

func (r *TaskRepository) Close() error {
	return r.db.Close()
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *TaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO tasks (` + sqlbuild.Columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + sqlbuild.Columns

	created, err := scanTask(r.db.QueryRowContext(ctx, query,
		task.ID.String(),
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		formatTime(task.DueDate),
		task.DueTime,
		formatTime(task.Reminder),
		formatTime(task.CompletedAt),
		task.CreatedAt.UTC().Format(timeLayout),
		task.UpdatedAt.UTC().Format(timeLayout),
	))
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Create",
			"task_id": task.ID.String(),
			"title":   task.Title,
		}).WithError(err).Error("Failed to create task")
		return entity.Task{}, &entity.StoreError{Op: "create", Err: err}
	}
	return created, nil
}

func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + sqlbuild.Columns + ` FROM tasks WHERE id = ?`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		return entity.Task{}, r.rowError("Get", "get", id, err)
	}
	return task, nil
}

func (r *TaskRepository) Find(ctx context.Context, q entity.TaskQuery) ([]entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args, err := sqlbuild.Select(q, sqlbuild.Question)
	if err != nil {
		return nil, &entity.StoreError{Op: "find", Err: err}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithField("method", "Find").WithError(err).Error("Failed to query tasks")
		return nil, &entity.StoreError{Op: "find", Err: err}
	}
	defer rows.Close()

	tasks := []entity.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			r.logger.WithField("method", "Find").WithError(err).Error("Failed to scan task row")
			return nil, &entity.StoreError{Op: "find", Err: err}
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		r.logger.WithField("method", "Find").WithError(err).Error("Error after scanning rows")
		return nil, &entity.StoreError{Op: "find", Err: err}
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, due_time = ?, reminder = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + sqlbuild.Columns

	updated, err := scanTask(r.db.QueryRowContext(ctx, query,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		formatTime(task.DueDate),
		task.DueTime,
		formatTime(task.Reminder),
		task.UpdatedAt.UTC().Format(timeLayout),
		task.ID.String(),
	))
	if err != nil {
		return entity.Task{}, r.rowError("Update", "update", task.ID, err)
	}
	return updated, nil
}

func (r *TaskRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE tasks
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + sqlbuild.Columns

	stamp := at.UTC().Format(timeLayout)
	task, err := scanTask(r.db.QueryRowContext(ctx, query, string(entity.StatusCompleted), stamp, stamp, id.String()))
	if err != nil {
		return entity.Task{}, r.rowError("Complete", "complete", id, err)
	}
	return task, nil
}

func (r *TaskRepository) SetReminder(ctx context.Context, id uuid.UUID, reminder *time.Time, at time.Time) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE tasks
		SET reminder = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + sqlbuild.Columns

	task, err := scanTask(r.db.QueryRowContext(ctx, query, formatTime(reminder), at.UTC().Format(timeLayout), id.String()))
	if err != nil {
		return entity.Task{}, r.rowError("SetReminder", "set reminder", id, err)
	}
	return task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Delete",
			"task_id": id.String(),
		}).WithError(err).Error("Failed to delete task")
		return false, &entity.StoreError{Op: "delete", Err: err}
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, &entity.StoreError{Op: "delete", Err: err}
	}
	return n > 0, nil
}

func (r *TaskRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, &entity.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

func (r *TaskRepository) rowError(method, op string, id uuid.UUID, err error) error {
	fields := logrus.Fields{"method": method, "task_id": id.String()}
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.WithFields(fields).Warn("Task not found")
		return entity.ErrTaskNotFound
	}
	r.logger.WithFields(fields).WithError(err).Error("Failed to " + op + " task")
	return &entity.StoreError{Op: op, Err: err}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (entity.Task, error) {
	var (
		task                                  entity.Task
		id, status, priority                  string
		dueDate, dueTime, reminder, completed sql.NullString
		createdAt, updatedAt                  string
	)
	if err := s.Scan(&id, &task.Title, &task.Description, &status, &priority,
		&dueDate, &dueTime, &reminder, &completed, &createdAt, &updatedAt); err != nil {
		return entity.Task{}, err
	}

	var err error
	if task.ID, err = uuid.Parse(id); err != nil {
		return entity.Task{}, fmt.Errorf("corrupt task id %q: %w", id, err)
	}
	task.Status = entity.Status(status)
	task.Priority = entity.Priority(priority)
	if dueTime.Valid {
		v := dueTime.String
		task.DueTime = &v
	}
	if task.DueDate, err = parseNullTime(dueDate); err != nil {
		return entity.Task{}, err
	}
	if task.Reminder, err = parseNullTime(reminder); err != nil {
		return entity.Task{}, err
	}
	if task.CompletedAt, err = parseNullTime(completed); err != nil {
		return entity.Task{}, err
	}
	if task.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return entity.Task{}, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}
	if task.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return entity.Task{}, fmt.Errorf("corrupt updated_at %q: %w", updatedAt, err)
	}
	return task, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp %q: %w", v.String, err)
	}
	return &t, nil
}
