package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jengzang/fog-backend-go/internal/database"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/notify"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/jengzang/fog-backend-go/internal/repository"
	"golang.org/x/sync/errgroup"
)

// RefreshStatistics recomputes every region statistic from the stored
// records. Records that cannot be read are skipped with a warning.
func (s *Store) RefreshStatistics(ctx context.Context, p *progress.Progress) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	ids, err := s.records.ListInstanceIDs(ctx)
	if err != nil {
		return err
	}
	p.SetTotal(int64(len(ids)))
	sums := make([]map[region.Code]int64, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, iid := range ids {
		i, iid := i, iid
		if gctx.Err() != nil {
			break
		}
		child := p.AddChild(1)
		g.Go(func() error {
			defer child.Finish()
			record, err := s.records.Get(gctx, iid)
			if errors.Is(err, repository.ErrCorruptRecord) {
				logger.S().Warnf("[Store] skipping instance %d: %v", iid, err)
				return nil
			}
			if err != nil {
				return err
			}
			if record == nil {
				logger.S().Warnf("[Store] instance %d disappeared during refresh", iid)
				return nil
			}

			groups, err := s.tessellation.Group(gctx, record.DetailedCells, child)
			if err != nil {
				return err
			}
			sums[i] = areaByRegion(groups)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	totals := make(map[region.Code]int64)
	for _, sum := range sums {
		for code, cm := range sum {
			totals[code] += cm
		}
	}

	var world int64
	err = database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		stats := s.stats.WithTx(tx)
		if err := stats.ResetAll(ctx); err != nil {
			return err
		}
		var err error
		world, err = s.applyAreas(ctx, stats, totals)
		return err
	})
	if err != nil {
		return err
	}

	logger.S().Infof("[Store] refreshed statistics of %d instances", len(ids))
	s.publish(ctx, notify.Change{Kind: notify.KindRefresh, Area: float64(world) / 1e4})
	return nil
}

// ClearAll removes every discovered cell, resets the statistics and clears
// the change history. Visibility flags are kept.
func (s *Store) ClearAll(ctx context.Context) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	err := database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.records.WithTx(tx).DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.stats.WithTx(tx).ResetAll(ctx); err != nil {
			return err
		}
		return s.history.WithTx(tx).DeleteAll(ctx)
	})
	if err != nil {
		return err
	}

	logger.S().Info("[Store] cleared all discovered cells")
	s.publish(ctx, notify.Change{Kind: notify.KindClear})
	return nil
}
