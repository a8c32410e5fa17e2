package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TWRT/sprint-manager/internal/models"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrMissingEventId   = errors.New("task has no remote event id")
	ErrMissingTaskOwner = errors.New("task has no owner")
)

const taskColumns = `id, owner, task_name, task_time, remote_event_id, start_time, created_at, updated_at`

// TaskRepository stores tasks keyed by id. Ownership is enforced only by
// FindByIDAndOwner and ListByOwner; Update and Delete trust that the caller
// already looked the task up through FindByIDAndOwner.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) ListByOwner(ctx context.Context, owner string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list tasks by owner: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.Owner == "" {
		return nil, ErrMissingTaskOwner
	}
	if task.RemoteEventId == "" {
		return nil, ErrMissingEventId
	}

	query := `
		INSERT INTO tasks (owner, task_name, task_time, remote_event_id, start_time)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		task.Owner,
		task.Name,
		string(task.Duration),
		task.RemoteEventId,
		task.StartTime,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert task last id: %w", err)
	}

	return r.FindByIDAndOwner(ctx, id, task.Owner)
}

func (r *TaskRepository) FindByIDAndOwner(ctx context.Context, id int64, owner string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND owner = ?`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task %d: %w", id, err)
	}
	return task, nil
}

// Update writes the mutable fields of task. Owner is never written.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET task_name = ?, task_time = ?, remote_event_id = ?, start_time = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		task.Name,
		string(task.Duration),
		task.RemoteEventId,
		task.StartTime,
		task.Id,
	)
	if err != nil {
		return fmt.Errorf("update task %d: %w", task.Id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var duration string
	err := row.Scan(
		&t.Id,
		&t.Owner,
		&t.Name,
		&duration,
		&t.RemoteEventId,
		&t.StartTime,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Duration = models.Hours(duration)
	return &t, nil
}
