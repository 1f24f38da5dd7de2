package service

import (
	"context"
	"strings"

	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/jengzang/fog-backend-go/internal/store"
)

// StatsService handles region statistics
type StatsService struct {
	store *store.Store
}

// NewStatsService creates a new statistics service
func NewStatsService(st *store.Store) *StatsService {
	return &StatsService{store: st}
}

// List returns the statistics matching filter
func (s *StatsService) List(ctx context.Context, filter *models.StatisticFilter) ([]models.RegionStatisticView, error) {
	filter.Country = strings.ToUpper(filter.Country)
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}

	stats, err := s.store.Statistics(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]models.RegionStatisticView, len(stats))
	for i, stat := range stats {
		views[i] = stat.View()
	}
	return views, nil
}

// Get returns the statistic of one region
func (s *StatsService) Get(ctx context.Context, raw string) (*models.RegionStatisticView, error) {
	code, err := region.Parse(raw)
	if err != nil {
		return nil, err
	}
	stat, err := s.store.Statistic(ctx, code)
	if err != nil {
		return nil, err
	}
	view := stat.View()
	return &view, nil
}

// SetVisible shows or hides a region
func (s *StatsService) SetVisible(ctx context.Context, raw string, visible bool) error {
	code, err := region.Parse(raw)
	if err != nil {
		return err
	}
	return s.store.SetVisible(ctx, code, visible)
}

// History returns the latest committed batches
func (s *StatsService) History(ctx context.Context, limit int) ([]*models.ChangeHistory, error) {
	return s.store.History(ctx, limit)
}
