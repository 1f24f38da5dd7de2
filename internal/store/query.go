package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/repository"
)

// Query returns the discovered cells inside within at resolution. Up to the
// instance level only instance cells are consulted, up to the coarse level
// the coarse data, and the detailed data beyond. Resolutions finer than the
// detailed level are answered at the detailed level.
func (s *Store) Query(ctx context.Context, within cells.Collection, resolution int) (cells.Collection, error) {
	if resolution < 0 || resolution > s2.MaxLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResolution, resolution)
	}
	if resolution > cells.DetailedLevel {
		resolution = cells.DetailedLevel
	}

	ids, err := s.records.ListInstanceIDs(ctx)
	if err != nil {
		return nil, err
	}

	var found []s2.CellID
	for _, iid := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		instance := cells.InstanceCell(iid)
		if !within.IntersectsCell(instance) {
			continue
		}
		if resolution <= cells.InstanceLevel {
			found = append(found, instance)
			continue
		}

		record, err := s.records.Get(ctx, iid)
		if errors.Is(err, repository.ErrCorruptRecord) {
			logger.S().Warnf("[Store] skipping instance %d: %v", iid, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		if resolution <= cells.CoarseLevel {
			found = append(found, record.CoarseCells...)
		} else {
			found = append(found, record.DetailedCells...)
		}
	}

	return cells.New(found...).Intersection(within).Expand(resolution), nil
}
