package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TWRT/sprint-manager/internal/models"
)

var ErrDivergenceNotFound = errors.New("divergence not found")

const divergenceColumns = `id, operation, owner, task_id, remote_event_id, status, detail, created_at, resolved_at`

type DivergenceRepository struct {
	db *sql.DB
}

func NewDivergenceRepository(db *sql.DB) *DivergenceRepository {
	return &DivergenceRepository{db: db}
}

func (r *DivergenceRepository) Record(ctx context.Context, d *models.Divergence) (int64, error) {
	query := `
	INSERT INTO sync_divergences (operation, owner, task_id, remote_event_id, status, detail)
        VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		d.Operation,
		d.Owner,
		d.TaskId,
		d.RemoteEventId,
		d.Status,
		d.Detail,
	)
	if err != nil {
		return 0, fmt.Errorf("record divergence: %w", err)
	}

	return result.LastInsertId()
}

// UpdateStatus moves an entry to status. Compensated and resolved entries
// get their resolution time stamped.
func (r *DivergenceRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE sync_divergences SET status = ?, resolved_at = NULL WHERE id = ?`
	if status == models.DivergenceCompensated || status == models.DivergenceResolved {
		query = `UPDATE sync_divergences SET status = ?, resolved_at = CURRENT_TIMESTAMP WHERE id = ?`
	}

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update divergence status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update divergence rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDivergenceNotFound
	}
	return nil
}

func (r *DivergenceRepository) Get(ctx context.Context, id int64) (*models.Divergence, error) {
	query := `SELECT ` + divergenceColumns + ` FROM sync_divergences WHERE id = ?`

	d, err := scanDivergence(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDivergenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get divergence: %w", err)
	}
	return d, nil
}

// List returns every entry, or only the ones still needing attention when
// openOnly is set, oldest first.
func (r *DivergenceRepository) List(ctx context.Context, openOnly bool) ([]models.Divergence, error) {
	query := `SELECT ` + divergenceColumns + ` FROM sync_divergences`
	args := []any{}
	if openOnly {
		query += ` WHERE status NOT IN (?, ?)`
		args = append(args, models.DivergenceCompensated, models.DivergenceResolved)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list divergences: %w", err)
	}
	defer rows.Close()

	divergences := []models.Divergence{}
	for rows.Next() {
		d, err := scanDivergence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan divergence: %w", err)
		}
		divergences = append(divergences, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate divergences: %w", err)
	}
	return divergences, nil
}

func scanDivergence(s rowScanner) (*models.Divergence, error) {
	var d models.Divergence
	var resolvedAt sql.NullTime
	err := s.Scan(
		&d.Id,
		&d.Operation,
		&d.Owner,
		&d.TaskId,
		&d.RemoteEventId,
		&d.Status,
		&d.Detail,
		&d.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		d.ResolvedAt = &resolvedAt.Time
	}
	return &d, nil
}
