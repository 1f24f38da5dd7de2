package repository

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"

	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/models"
)

// Stored cell lists are little-endian
var recordOrder = binary.LittleEndian

// PartialCellRepository handles database operations for instance records
type PartialCellRepository struct {
	db DBTX
}

// NewPartialCellRepository creates a new instance record repository
func NewPartialCellRepository(db *sql.DB) *PartialCellRepository {
	return &PartialCellRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PartialCellRepository) WithTx(tx *sql.Tx) *PartialCellRepository {
	return &PartialCellRepository{db: tx}
}

// Get retrieves the record of an instance, nil when there is none
func (r *PartialCellRepository) Get(ctx context.Context, instanceID uint16) (*models.PartialCellCollection, error) {
	query := `
		SELECT instance_id, coarse_cells, detailed_cells, updated_at
		FROM partial_cell_collections
		WHERE instance_id = ?
	`

	var coarse, detailed []byte
	record := &models.PartialCellCollection{}
	err := r.db.QueryRowContext(ctx, query, instanceID).Scan(
		&record.InstanceID,
		&coarse,
		&detailed,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance record %d: %w", instanceID, err)
	}

	if record.CoarseCells, err = cells.Decode(coarse, recordOrder); err != nil {
		return nil, fmt.Errorf("%w: instance %d coarse cells: %v", ErrCorruptRecord, instanceID, err)
	}
	if record.DetailedCells, err = cells.Decode(detailed, recordOrder); err != nil {
		return nil, fmt.Errorf("%w: instance %d detailed cells: %v", ErrCorruptRecord, instanceID, err)
	}

	return record, nil
}

// Upsert creates or replaces the record of an instance
func (r *PartialCellRepository) Upsert(ctx context.Context, record *models.PartialCellCollection) error {
	query := `
		INSERT INTO partial_cell_collections (instance_id, coarse_cells, detailed_cells, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(instance_id) DO UPDATE SET
			coarse_cells = excluded.coarse_cells,
			detailed_cells = excluded.detailed_cells,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		record.InstanceID,
		cells.Encode(record.CoarseCells, recordOrder),
		cells.Encode(record.DetailedCells, recordOrder),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert instance record %d: %w", record.InstanceID, err)
	}

	return nil
}

// ListInstanceIDs returns the ids of every stored instance in ascending order
func (r *PartialCellRepository) ListInstanceIDs(ctx context.Context) ([]uint16, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT instance_id FROM partial_cell_collections ORDER BY instance_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list instance ids: %w", err)
	}
	defer rows.Close()

	var ids []uint16
	for rows.Next() {
		var id uint16
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan instance id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Count returns the number of stored instance records
func (r *PartialCellRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM partial_cell_collections`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count instance records: %w", err)
	}
	return count, nil
}

// DeleteAll removes every instance record
func (r *PartialCellRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM partial_cell_collections`); err != nil {
		return fmt.Errorf("failed to delete instance records: %w", err)
	}
	return nil
}
