package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/region"
)

// RegionStatisticRepository handles database operations for region statistics
type RegionStatisticRepository struct {
	db DBTX
}

// NewRegionStatisticRepository creates a new region statistic repository
func NewRegionStatisticRepository(db *sql.DB) *RegionStatisticRepository {
	return &RegionStatisticRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *RegionStatisticRepository) WithTx(tx *sql.Tx) *RegionStatisticRepository {
	return &RegionStatisticRepository{db: tx}
}

const statisticColumns = `region_code, country_code, subdivision_code, area, discovered_area, visible, updated_at`

// AddDiscovered adds centimeters to the discovered area of code, creating the
// row with the catalog area when it does not exist yet.
func (r *RegionStatisticRepository) AddDiscovered(ctx context.Context, code region.Code, area float64, centimeters int64) error {
	query := `
		INSERT INTO region_statistics (region_code, country_code, subdivision_code, area, discovered_area, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(region_code) DO UPDATE SET
			discovered_area = discovered_area + excluded.discovered_area,
			area = excluded.area,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query, code.String(), code.Country, code.Subdivision, area, centimeters)
	if err != nil {
		return fmt.Errorf("failed to add discovered area to %s: %w", code, err)
	}

	return nil
}

// ResetAll sets the discovered area of every region to zero. Visibility is kept.
func (r *RegionStatisticRepository) ResetAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE region_statistics SET discovered_area = 0, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to reset region statistics: %w", err)
	}
	return nil
}

// Get retrieves the statistic of one region, nil when there is none
func (r *RegionStatisticRepository) Get(ctx context.Context, code region.Code) (*models.RegionStatistic, error) {
	query := `SELECT ` + statisticColumns + ` FROM region_statistics WHERE region_code = ?`

	stat, err := scanStatistic(r.db.QueryRowContext(ctx, query, code.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get region statistic %s: %w", code, err)
	}

	return stat, nil
}

// List retrieves region statistics with optional filters
func (r *RegionStatisticRepository) List(ctx context.Context, filter *models.StatisticFilter) ([]*models.RegionStatistic, error) {
	query := `SELECT ` + statisticColumns + ` FROM region_statistics WHERE 1=1`
	args := []interface{}{}

	switch filter.Scope {
	case models.ScopeCountries:
		query += " AND subdivision_code = '' AND region_code NOT IN (?, ?)"
		args = append(args, region.World.String(), region.Ocean.String())
	case models.ScopeSubdivisions:
		query += " AND subdivision_code != ''"
	}
	if filter.Country != "" {
		query += " AND country_code = ?"
		args = append(args, filter.Country)
	}
	if filter.Discovered {
		query += " AND discovered_area > 0"
	}
	if filter.Visible {
		query += " AND visible = 1"
	}

	query += " ORDER BY region_code"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list region statistics: %w", err)
	}
	defer rows.Close()

	var stats []*models.RegionStatistic
	for rows.Next() {
		stat, err := scanStatistic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan region statistic: %w", err)
		}
		stats = append(stats, stat)
	}

	return stats, rows.Err()
}

// SetVisible changes the visibility flag. It reports whether the region exists.
func (r *RegionStatisticRepository) SetVisible(ctx context.Context, code region.Code, visible bool) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE region_statistics SET visible = ?, updated_at = CURRENT_TIMESTAMP WHERE region_code = ?`,
		visible, code.String())
	if err != nil {
		return false, fmt.Errorf("failed to update visibility of %s: %w", code, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStatistic(row rowScanner) (*models.RegionStatistic, error) {
	var code string
	stat := &models.RegionStatistic{}
	err := row.Scan(
		&code,
		&stat.CountryCode,
		&stat.SubdivisionCode,
		&stat.Area,
		&stat.DiscoveredCentimeters,
		&stat.Visible,
		&stat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if stat.Code, err = region.Parse(code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return stat, nil
}
