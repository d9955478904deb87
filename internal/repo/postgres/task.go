package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/migrations"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/sqlbuild"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

const queryTimeout = 5 * time.Second

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *logrus.Logger
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger.Log,
	}
}

// Connect opens a pool against dsn, verifies it and applies migrations.
func Connect(ctx context.Context, dsn string) (*TaskRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dbPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Closing the database/sql handle hands its idle connections back to dbPool.
	sqlDB := stdlib.OpenDBFromPool(dbPool)
	err = migrations.Up(ctx, sqlDB, goose.DialectPostgres)
	sqlDB.Close()
	if err != nil {
		dbPool.Close()
		return nil, err
	}

	logger.Log.Info("Connected to database successfully")
	return NewTaskRepository(dbPool), nil
}

func (r *TaskRepository) Close() error {
	r.db.Close()
	return nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *TaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO tasks (` + sqlbuild.Columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + sqlbuild.Columns

	created, err := scanTask(r.db.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		task.DueDate,
		task.DueTime,
		task.Reminder,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
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

	query := `SELECT ` + sqlbuild.Columns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return entity.Task{}, r.rowError("Get", "get", id, err)
	}
	return task, nil
}

func (r *TaskRepository) Find(ctx context.Context, q entity.TaskQuery) ([]entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args, err := sqlbuild.Select(q, sqlbuild.Dollar)
	if err != nil {
		return nil, &entity.StoreError{Op: "find", Err: err}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method": "Find",
		}).WithError(err).Error("Failed to list tasks")
		return nil, &entity.StoreError{Op: "find", Err: fmt.Errorf("failed to list tasks: %w", err)}
	}
	defer rows.Close()

	tasks := []entity.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"method": "Find",
			}).WithError(err).Error("Failed to scan task row")
			return nil, &entity.StoreError{Op: "find", Err: fmt.Errorf("failed to scan task row: %w", err)}
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		r.logger.WithFields(logrus.Fields{
			"method": "Find",
		}).WithError(err).Error("Error after scanning rows")
		return nil, &entity.StoreError{Op: "find", Err: fmt.Errorf("error after scanning rows: %w", err)}
	}

	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
		    due_date = $6, due_time = $7, reminder = $8, updated_at = $9
		WHERE id = $1
		RETURNING ` + sqlbuild.Columns

	updated, err := scanTask(r.db.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		task.DueDate,
		task.DueTime,
		task.Reminder,
		task.UpdatedAt,
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
		SET status = $2, completed_at = $3, updated_at = $3
		WHERE id = $1
		RETURNING ` + sqlbuild.Columns

	task, err := scanTask(r.db.QueryRow(ctx, query, id, string(entity.StatusCompleted), at))
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
		SET reminder = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + sqlbuild.Columns

	task, err := scanTask(r.db.QueryRow(ctx, query, id, reminder, at))
	if err != nil {
		return entity.Task{}, r.rowError("SetReminder", "set reminder", id, err)
	}
	return task, nil
}

// Delete reports whether a row was removed; a missing row is not an error.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Delete",
			"task_id": id.String(),
		}).WithError(err).Error("Failed to delete task")
		return false, &entity.StoreError{Op: "delete", Err: fmt.Errorf("failed to delete task: %w", err)}
	}

	return result.RowsAffected() > 0, nil
}

func (r *TaskRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, &entity.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

func (r *TaskRepository) rowError(method, op string, id uuid.UUID, err error) error {
	fields := logrus.Fields{
		"method":  method,
		"task_id": id.String(),
	}
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.WithFields(fields).Warn("Task not found")
		return entity.ErrTaskNotFound
	}
	r.logger.WithFields(fields).WithError(err).Error("Failed to " + op + " task")
	return &entity.StoreError{Op: op, Err: err}
}

func scanTask(row pgx.Row) (entity.Task, error) {
	var (
		task             entity.Task
		status, priority string
	)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&task.DueDate,
		&task.DueTime,
		&task.Reminder,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return entity.Task{}, err
	}
	task.Status = entity.Status(status)
	task.Priority = entity.Priority(priority)
	normalize(&task)
	return task, nil
}

// normalize puts every timestamp in UTC regardless of the session time zone.
func normalize(task *entity.Task) {
	for _, p := range []**time.Time{&task.DueDate, &task.Reminder, &task.CompletedAt} {
		if *p != nil {
			t := (*p).UTC()
			*p = &t
		}
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
}
