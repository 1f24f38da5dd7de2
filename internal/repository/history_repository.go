package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/fog-backend-go/internal/models"
)

// HistoryRepository handles database operations for the change history
type HistoryRepository struct {
	db DBTX
}

// NewHistoryRepository creates a new change history repository
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *HistoryRepository) WithTx(tx *sql.Tx) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// Create appends an entry to the change history
func (r *HistoryRepository) Create(ctx context.Context, entry *models.ChangeHistory) error {
	query := `
		INSERT INTO change_history (source, instance_count, cell_count, discovered_area)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.Source,
		entry.InstanceCount,
		entry.CellCount,
		entry.DiscoveredCentimeters,
	)
	if err != nil {
		return fmt.Errorf("failed to create change history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// List retrieves the latest history entries, newest first
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*models.ChangeHistory, error) {
	query := `
		SELECT id, source, instance_count, cell_count, discovered_area, created_at
		FROM change_history
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list change history: %w", err)
	}
	defer rows.Close()

	var entries []*models.ChangeHistory
	for rows.Next() {
		entry := &models.ChangeHistory{}
		err := rows.Scan(
			&entry.ID,
			&entry.Source,
			&entry.InstanceCount,
			&entry.CellCount,
			&entry.DiscoveredCentimeters,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change history: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteAll clears the change history
func (r *HistoryRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM change_history`); err != nil {
		return fmt.Errorf("failed to clear change history: %w", err)
	}
	return nil
}
