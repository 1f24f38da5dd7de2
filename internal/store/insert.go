package store

import (
	"context"
	"database/sql"
	"sort"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/database"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/notify"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/jengzang/fog-backend-go/internal/repository"
	"golang.org/x/sync/errgroup"
)

// InsertResult describes what an insert discovered
type InsertResult struct {
	Cells     cells.Collection `json:"-"`
	CellCount int              `json:"cell_count"`
	Area      float64          `json:"area"` // square meters
	Instances int              `json:"instances"`
}

// partition is the part of an insert under one instance cell
type partition struct {
	instance s2.CellID
	cells    cells.Collection
}

type partitionResult struct {
	record *models.PartialCellCollection
	delta  cells.Collection
	areas  map[region.Code]int64
}

// partitions splits an aligned collection by instance cell. A cell coarser
// than the instance level becomes one partition per instance cell below it,
// each holding that instance cell whole.
func partitions(c cells.Collection) []partition {
	var out []partition
	for i := 0; i < len(c); {
		id := c[i]
		if id.Level() < cells.InstanceLevel {
			for _, child := range (cells.Collection{id}).Expand(cells.InstanceLevel) {
				out = append(out, partition{instance: child, cells: cells.Collection{child}})
			}
			i++
			continue
		}
		instance := id.Parent(cells.InstanceLevel)
		end := c.IndexAfter(instance, i)
		out = append(out, partition{instance: instance, cells: c[i:end]})
		i = end
	}
	return out
}

// Insert records c as discovered
func (s *Store) Insert(ctx context.Context, c cells.Collection, p *progress.Progress) (*InsertResult, error) {
	return s.InsertFrom(ctx, "", c, p)
}

// InsertFrom records c as discovered and names source in the change history.
// Cells already known are ignored; the result only describes new cells.
// Nothing is written when an error is returned.
func (s *Store) InsertFrom(ctx context.Context, source string, c cells.Collection, p *progress.Progress) (*InsertResult, error) {
	s.writer.Lock()
	defer s.writer.Unlock()

	parts := partitions(c.Aligned(cells.DetailedLevel))
	p.SetTotal(int64(len(parts)))
	results := make([]*partitionResult, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, part := range parts {
		i, part := i, part
		if gctx.Err() != nil {
			break
		}
		child := p.AddChild(1)
		g.Go(func() error {
			defer child.Finish()
			r, err := s.mergePartition(gctx, part, child)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &InsertResult{}
	var changed []*partitionResult
	var delta []s2.CellID
	totals := make(map[region.Code]int64)
	for _, r := range results {
		if r == nil {
			continue
		}
		changed = append(changed, r)
		delta = append(delta, r.delta...)
		for code, cm := range r.areas {
			totals[code] += cm
		}
	}
	if len(changed) == 0 {
		return result, nil
	}

	var world int64
	err := database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		records := s.records.WithTx(tx)
		for _, r := range changed {
			if err := records.Upsert(ctx, r.record); err != nil {
				return err
			}
		}

		var err error
		if world, err = s.applyAreas(ctx, s.stats.WithTx(tx), totals); err != nil {
			return err
		}

		return s.history.WithTx(tx).Create(ctx, &models.ChangeHistory{
			Source:                source,
			InstanceCount:         len(changed),
			CellCount:             len(delta),
			DiscoveredCentimeters: world,
		})
	})
	if err != nil {
		return nil, err
	}

	result.Cells = cells.New(delta...)
	result.CellCount = len(result.Cells)
	result.Area = float64(world) / 1e4
	result.Instances = len(changed)
	logger.S().Infof("[Store] inserted %d cells in %d instances (%.0f m2)", result.CellCount, result.Instances, result.Area)

	instances := make([]string, len(changed))
	for i, r := range changed {
		instances[i] = r.record.InstanceCell().ToToken()
	}
	s.publish(ctx, notify.Change{Kind: notify.KindInsert, Instances: instances, Area: result.Area})

	return result, nil
}

func (s *Store) mergePartition(ctx context.Context, part partition, p *progress.Progress) (*partitionResult, error) {
	iid := cells.InstanceID(part.instance)
	record, err := s.records.Get(ctx, iid)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = models.NewPartialCellCollection(iid)
	}

	delta := record.Merge(part.cells)
	if delta.IsEmpty() {
		return nil, nil
	}

	groups, err := s.tessellation.Group(ctx, delta, p)
	if err != nil {
		return nil, err
	}
	return &partitionResult{record: record, delta: delta, areas: areaByRegion(groups)}, nil
}

func areaByRegion(groups map[region.Code]cells.Collection) map[region.Code]int64 {
	areas := make(map[region.Code]int64, len(groups))
	for code, c := range groups {
		areas[code] = c.AreaCentimeters()
	}
	return areas
}

// applyAreas adds per-region areas to the statistics. Subdivisions also count
// for their country and every region, ocean included, counts for the world.
// It returns the world total.
func (s *Store) applyAreas(ctx context.Context, stats *repository.RegionStatisticRepository, totals map[region.Code]int64) (int64, error) {
	rollup := make(map[region.Code]int64, len(totals)+2)
	var world int64
	for code, cm := range totals {
		rollup[code] += cm
		if code.IsSubdivision() {
			rollup[code.CountryCode()] += cm
		}
		world += cm
	}
	rollup[region.World] += world

	codes := make([]region.Code, 0, len(rollup))
	for code := range rollup {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].Less(codes[j]) })

	for _, code := range codes {
		if err := stats.AddDiscovered(ctx, code, s.catalog.Area(code), rollup[code]); err != nil {
			return 0, err
		}
	}
	return world, nil
}
