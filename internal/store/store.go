// Package store persists discovered cells and keeps the region statistics
// derived from them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"runtime"
	"sync"

	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/notify"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/jengzang/fog-backend-go/internal/repository"
	"github.com/jengzang/fog-backend-go/internal/tessellation"
)

// Store errors
var (
	ErrRegionNotFound    = errors.New("region statistic not found")
	ErrInvalidResolution = errors.New("invalid resolution")
)

// Store is the discovery store. Mutations are serialized by a single writer
// lock; the work inside one mutation runs in parallel per instance cell.
type Store struct {
	db      *sql.DB
	records *repository.PartialCellRepository
	stats   *repository.RegionStatisticRepository
	history *repository.HistoryRepository

	tessellation *tessellation.Tessellation
	catalog      *region.Catalog
	publisher    notify.Publisher
	workers      int

	writer sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithWorkers bounds the number of instance cells processed at once
func WithWorkers(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCatalog provides the region areas stored beside the statistics
func WithCatalog(catalog *region.Catalog) Option {
	return func(s *Store) {
		s.catalog = catalog
	}
}

// WithPublisher receives a change after every commit
func WithPublisher(p notify.Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

// New creates a store on an opened and migrated database
func New(db *sql.DB, tess *tessellation.Tessellation, opts ...Option) *Store {
	s := &Store{
		db:           db,
		records:      repository.NewPartialCellRepository(db),
		stats:        repository.NewRegionStatisticRepository(db),
		history:      repository.NewHistoryRepository(db),
		tessellation: tess,
		workers:      runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Statistics lists region statistics
func (s *Store) Statistics(ctx context.Context, filter *models.StatisticFilter) ([]*models.RegionStatistic, error) {
	if filter == nil {
		filter = &models.StatisticFilter{}
	}
	return s.stats.List(ctx, filter)
}

// Statistic returns the statistic of one region
func (s *Store) Statistic(ctx context.Context, code region.Code) (*models.RegionStatistic, error) {
	stat, err := s.stats.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, ErrRegionNotFound
	}
	return stat, nil
}

// SetVisible changes whether a region is shown
func (s *Store) SetVisible(ctx context.Context, code region.Code, visible bool) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	ok, err := s.stats.SetVisible(ctx, code, visible)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRegionNotFound
	}
	return nil
}

// History returns the latest committed batches, newest first
func (s *Store) History(ctx context.Context, limit int) ([]*models.ChangeHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.history.List(ctx, limit)
}

func (s *Store) publish(ctx context.Context, change notify.Change) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, change); err != nil {
		logger.S().Warnf("[Store] failed to publish %s change: %v", change.Kind, err)
	}
}
