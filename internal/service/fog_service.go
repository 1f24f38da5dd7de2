package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/jengzang/fog-backend-go/internal/contour"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/notify"
)

// FogCacheVertices bounds the cached rings by their total vertex count
const FogCacheVertices = 1 << 22

// FogService renders discovered areas as rings. Rendered viewports are cached
// until the discovered cells change.
type FogService struct {
	discovery   *DiscoveryService
	cache       *ristretto.Cache[string, []contour.Ring]
	unsubscribe func()

	// generation is part of every cache key and moves on each change, so
	// rings rendered from data read before a change are never served after it
	generation atomic.Uint64
}

// NewFogService creates a fog service. When hub is not nil, every change it
// publishes clears the cache.
func NewFogService(discovery *DiscoveryService, hub *notify.Hub) (*FogService, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []contour.Ring]{
		NumCounters: FogCacheVertices / 100,
		MaxCost:     FogCacheVertices,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fog cache: %w", err)
	}

	s := &FogService{discovery: discovery, cache: cache}
	if hub != nil {
		changes, unsubscribe := hub.Subscribe(16)
		s.unsubscribe = unsubscribe
		go s.invalidate(changes)
	}
	return s, nil
}

func (s *FogService) invalidate(changes <-chan notify.Change) {
	for change := range changes {
		logger.S().Debugf("[Fog] %s change, clearing rendered rings", change.Kind)
		s.generation.Add(1)
		s.cache.Clear()
	}
}

// Rings returns the outlines of the discovered cells inside a viewport
func (s *FogService) Rings(ctx context.Context, filter *models.ViewportFilter) ([]contour.Ring, error) {
	within, level, err := s.discovery.viewport(ctx, filter)
	if err != nil {
		return nil, err
	}

	key := cacheKey(s.generation.Load(), filter, level)
	if rings, ok := s.cache.Get(key); ok {
		return rings, nil
	}

	discovered, err := s.discovery.store.Query(ctx, within, level)
	if err != nil {
		return nil, err
	}
	rings, err := contour.Rings(ctx, discovered, level)
	if err != nil {
		return nil, err
	}
	s.remember(key, rings)
	return rings, nil
}

func cacheKey(generation uint64, filter *models.ViewportFilter, level int) string {
	return fmt.Sprintf("%d:%g,%g,%g,%g@%d", generation, filter.South, filter.West, filter.North, filter.East, level)
}

func (s *FogService) remember(key string, rings []contour.Ring) {
	var vertices int64 = 1
	for _, ring := range rings {
		vertices += int64(len(ring))
	}
	s.cache.Set(key, rings, vertices)
}

// Close stops following changes and releases the cache
func (s *FogService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.cache.Close()
}
