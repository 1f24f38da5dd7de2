package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/convert"
	"github.com/jengzang/fog-backend-go/internal/coverage"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/spatial"
	"github.com/jengzang/fog-backend-go/internal/store"
)

// Request errors, reported to clients as bad requests
var (
	ErrInvalidToken   = errors.New("invalid cell token")
	ErrEmptyInsert    = errors.New("nothing to insert")
	ErrInvalidPoint   = errors.New("invalid point")
	ErrInvalidRequest = errors.New("invalid request")
)

// DefaultViewportLevel is used when a viewport request names no level
const DefaultViewportLevel = cells.CoarseLevel

// InsertRequest carries cells as tokens, a track as points, or both
type InsertRequest struct {
	Tokens []string     `json:"tokens"`
	Points [][2]float64 `json:"points"` // [lat, lng] in track order
	Source string       `json:"source"`
}

// DiscoveryService handles discovered cells
type DiscoveryService struct {
	store     *store.Store
	slack     int
	threshold float64
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(st *store.Store, slack int, threshold float64) *DiscoveryService {
	return &DiscoveryService{store: st, slack: slack, threshold: threshold}
}

// Insert records the cells of a request
func (s *DiscoveryService) Insert(ctx context.Context, req *InsertRequest) (*store.InsertResult, error) {
	c, err := s.collect(req)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyInsert
	}
	source := req.Source
	if source == "" {
		source = "api"
	}
	return s.store.InsertFrom(ctx, source, c, nil)
}

func (s *DiscoveryService) collect(req *InsertRequest) (cells.Collection, error) {
	ids := make([]s2.CellID, 0, len(req.Tokens))
	for _, token := range req.Tokens {
		id := s2.CellIDFromToken(token)
		if !id.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidToken, token)
		}
		ids = append(ids, id)
	}
	c := cells.New(ids...)

	if len(req.Points) > 0 {
		stride := spatial.NewStride(cells.DetailedLevel, s.threshold)
		for _, p := range req.Points {
			if p[0] < -90 || p[0] > 90 || p[1] < -180 || p[1] > 180 {
				return nil, fmt.Errorf("%w: [%g, %g]", ErrInvalidPoint, p[0], p[1])
			}
			stride.Add(p[0], p[1])
		}
		c = c.Union(stride.Collection())
	}
	return c, nil
}

// Clear forgets every discovered cell
func (s *DiscoveryService) Clear(ctx context.Context) error {
	return s.store.ClearAll(ctx)
}

// Cells returns the discovered cells inside a viewport
func (s *DiscoveryService) Cells(ctx context.Context, filter *models.ViewportFilter) (cells.Collection, error) {
	within, level, err := s.viewport(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.store.Query(ctx, within, level)
}

// viewport covers the box of filter at its level
func (s *DiscoveryService) viewport(ctx context.Context, filter *models.ViewportFilter) (cells.Collection, int, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	level := filter.Level
	if level == 0 {
		level = DefaultViewportLevel
	}
	if level < 0 || level > cells.DetailedLevel {
		return nil, 0, fmt.Errorf("%w: level %d", ErrInvalidRequest, level)
	}
	within, err := coverage.Cover(ctx, filter.BoundingBox, level, coverage.WithSlack(s.slack))
	if err != nil {
		return nil, 0, err
	}
	return within, level, nil
}

// Export writes every discovered cell in the compressed format
func (s *DiscoveryService) Export(ctx context.Context, w io.Writer) error {
	all, err := s.store.Query(ctx, cells.World(), cells.DetailedLevel)
	if err != nil {
		return err
	}
	return convert.ExportCompressed(w, all)
}
