package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/fog-backend-go/internal/models"
)

// ErrTaskNotFound is returned when a task id does not exist
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository handles database operations for background tasks
type TaskRepository struct {
	db DBTX
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `
	id, kind, status, progress_percent, params_json, start_time, end_time,
	result_summary, error_message, created_by, created_at, updated_at
`

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (kind, status, progress_percent, params_json, created_by)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		task.Kind,
		task.Status,
		task.ProgressPercent,
		task.ParamsJSON,
		task.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// List retrieves tasks with optional filters
func (r *TaskRepository) List(ctx context.Context, filter *models.TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`

	args := []interface{}{}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateProgress updates the progress of a task
func (r *TaskRepository) UpdateProgress(ctx context.Context, id int64, progressPercent int) error {
	query := `
		UPDATE tasks
		SET progress_percent = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, progressPercent, id); err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}

	return nil
}

// MarkAsRunning marks a task as running
func (r *TaskRepository) MarkAsRunning(ctx context.Context, id int64) error {
	now := time.Now().Unix()
	query := `
		UPDATE tasks
		SET status = ?, start_time = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, models.TaskStatusRunning, now, id); err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	return nil
}

// MarkAsCompleted marks a task as completed with result summary
func (r *TaskRepository) MarkAsCompleted(ctx context.Context, id int64, resultSummary string) error {
	now := time.Now().Unix()
	query := `
		UPDATE tasks
		SET status = ?, end_time = ?, result_summary = ?,
			progress_percent = 100, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, models.TaskStatusCompleted, now, resultSummary, id); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	return nil
}

// MarkAsFailed marks a task as failed with an error message
func (r *TaskRepository) MarkAsFailed(ctx context.Context, id int64, errorMessage string) error {
	now := time.Now().Unix()
	query := `
		UPDATE tasks
		SET status = ?, end_time = ?, error_message = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, models.TaskStatusFailed, now, errorMessage, id); err != nil {
		return fmt.Errorf("failed to mark task as failed: %w", err)
	}

	return nil
}

// FailInterrupted marks every pending or running task as failed. It runs at
// startup, when no task can still be alive.
func (r *TaskRepository) FailInterrupted(ctx context.Context) (int64, error) {
	query := `
		UPDATE tasks
		SET status = ?, end_time = ?, error_message = 'interrupted by restart',
			updated_at = CURRENT_TIMESTAMP
		WHERE status IN (?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		models.TaskStatusFailed, time.Now().Unix(), models.TaskStatusPending, models.TaskStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted tasks: %w", err)
	}
	return result.RowsAffected()
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID,
		&task.Kind,
		&task.Status,
		&task.ProgressPercent,
		&task.ParamsJSON,
		&task.StartTime,
		&task.EndTime,
		&task.ResultSummary,
		&task.ErrorMessage,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	return task, err
}
