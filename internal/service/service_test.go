package service

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/convert"
	"github.com/jengzang/fog-backend-go/internal/coverage"
	"github.com/jengzang/fog-backend-go/internal/database"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/notify"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/jengzang/fog-backend-go/internal/repository"
	"github.com/jengzang/fog-backend-go/internal/store"
	"github.com/jengzang/fog-backend-go/internal/tessellation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	indexCell = s2.CellIDFromLatLng(s2.LatLngFromDegrees(22.3, 114.2)).Parent(tessellation.IndexLevel)
	instance  = indexCell.Children()[1]
)

type fixture struct {
	tasks *repository.TaskRepository
	store *store.Store
	hub   *notify.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "fog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	index, err := json.Marshal(map[string][]region.Code{
		indexCell.ToToken(): {region.MustParse("AA-01"), region.MustParse("AA")},
	})
	require.NoError(t, err)
	var cover bytes.Buffer
	require.NoError(t, tessellation.EncodeCoverage(&cover, cells.New(instance)))

	tess, err := tessellation.New(fstest.MapFS{
		tessellation.IndexFile:                    {Data: index},
		"covers/AA" + tessellation.CoverSuffix:    {Data: cover.Bytes()},
		"covers/AA-01" + tessellation.CoverSuffix: {Data: cover.Bytes()},
	})
	require.NoError(t, err)

	hub := notify.NewHub()
	return &fixture{
		tasks: repository.NewTaskRepository(db),
		store: store.New(db, tess, store.WithWorkers(2), store.WithPublisher(hub)),
		hub:   hub,
	}
}

func detailed(n int) s2.CellID {
	id := instance.ChildBeginAtLevel(cells.DetailedLevel)
	for i := 0; i < n; i++ {
		id = id.Next()
	}
	return id
}

// viewport returns a filter whose box is the bound of the instance cell
func viewport(level int) *models.ViewportFilter {
	rect := s2.CellFromCellID(instance).RectBound()
	return &models.ViewportFilter{
		BoundingBox: coverage.BoundingBox{
			South: rect.Lo().Lat.Degrees(),
			West:  rect.Lo().Lng.Degrees(),
			North: rect.Hi().Lat.Degrees(),
			East:  rect.Hi().Lng.Degrees(),
		},
		Level: level,
	}
}

func TestDiscoveryInsertTokensAndPoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewDiscoveryService(f.store, 1, 100)

	res, err := s.Insert(ctx, &InsertRequest{Tokens: []string{detailed(0).ToToken()}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CellCount)

	center := s2.LatLngFromPoint(instance.Point())
	res, err = s.Insert(ctx, &InsertRequest{Points: [][2]float64{
		{center.Lat.Degrees(), center.Lng.Degrees()},
		{center.Lat.Degrees() + 0.0001, center.Lng.Degrees()},
	}})
	require.NoError(t, err)
	assert.Positive(t, res.CellCount)

	history, err := NewStatsService(f.store).History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "api", history[0].Source)
}

func TestDiscoveryInsertRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := NewDiscoveryService(newFixture(t).store, 1, 100)

	_, err := s.Insert(ctx, &InsertRequest{Tokens: []string{"zz"}})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Insert(ctx, &InsertRequest{Points: [][2]float64{{91, 0}}})
	assert.ErrorIs(t, err, ErrInvalidPoint)

	_, err = s.Insert(ctx, &InsertRequest{})
	assert.ErrorIs(t, err, ErrEmptyInsert)
}

func TestDiscoveryCells(t *testing.T) {
	ctx := context.Background()
	s := NewDiscoveryService(newFixture(t).store, 1, 100)

	_, err := s.Insert(ctx, &InsertRequest{Tokens: []string{detailed(0).ToToken(), detailed(1).ToToken()}})
	require.NoError(t, err)

	got, err := s.Cells(ctx, viewport(cells.CoarseLevel))
	require.NoError(t, err)
	assert.Equal(t, cells.Collection{detailed(0).Parent(cells.CoarseLevel)}, got)

	got, err = s.Cells(ctx, viewport(cells.DetailedLevel))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.Cells(ctx, &models.ViewportFilter{BoundingBox: coverage.BoundingBox{South: 10, North: 0}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Cells(ctx, viewport(25))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestDiscoveryExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewDiscoveryService(f.store, 1, 100)
	far := s2.CellIDFromLatLng(s2.LatLngFromDegrees(-40, -120)).Parent(cells.DetailedLevel)

	want := cells.New(detailed(3), far)
	_, err := s.Insert(ctx, &InsertRequest{Tokens: want.Tokens()})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.cells")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, s.Export(ctx, out))
	require.NoError(t, out.Close())

	converter, err := convert.GetConverter(convert.FormatCompressed, path, convert.Options{})
	require.NoError(t, err)
	got, err := converter.Convert(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.Clear(ctx))
	all, err := f.store.Query(ctx, cells.World(), cells.DetailedLevel)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStatsService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := NewDiscoveryService(f.store, 1, 100).Insert(ctx, &InsertRequest{Tokens: []string{detailed(0).ToToken()}})
	require.NoError(t, err)

	s := NewStatsService(f.store)
	views, err := s.List(ctx, &models.StatisticFilter{Scope: models.ScopeCountries})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, region.MustParse("AA"), views[0].Code)
	assert.InEpsilon(t, cells.CellArea(detailed(0)), views[0].DiscoveredArea, 1e-6)

	view, err := s.Get(ctx, "aa-01")
	require.NoError(t, err)
	assert.Equal(t, "AA-01", view.Code.String())

	_, err = s.Get(ctx, "BB")
	assert.ErrorIs(t, err, store.ErrRegionNotFound)

	require.NoError(t, s.SetVisible(ctx, "AA", false))
	view, err = s.Get(ctx, "AA")
	require.NoError(t, err)
	assert.False(t, view.Visible)
}

func TestFogRingsFollowChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	discovery := NewDiscoveryService(f.store, 1, 100)
	fog, err := NewFogService(discovery, f.hub)
	require.NoError(t, err)
	defer fog.Close()

	_, err = discovery.Insert(ctx, &InsertRequest{Tokens: []string{detailed(0).ToToken()}})
	require.NoError(t, err)

	rings, err := fog.Rings(ctx, viewport(cells.CoarseLevel))
	require.NoError(t, err)
	require.Len(t, rings, 1)

	// a level-12 cell far from the first one inside the same instance
	other := instance.Children()[3].ChildBeginAtLevel(cells.DetailedLevel)
	_, err = discovery.Insert(ctx, &InsertRequest{Tokens: []string{other.ToToken()}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		rings, err := fog.Rings(ctx, viewport(cells.CoarseLevel))
		return err == nil && len(rings) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFogRingsReadBeforeChangeAreNotServed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	discovery := NewDiscoveryService(f.store, 1, 100)
	fog, err := NewFogService(discovery, f.hub)
	require.NoError(t, err)
	defer fog.Close()

	_, err = discovery.Insert(ctx, &InsertRequest{Tokens: []string{detailed(0).ToToken()}})
	require.NoError(t, err)

	filter := viewport(cells.CoarseLevel)
	generation := fog.generation.Load()
	key := cacheKey(generation, filter, cells.CoarseLevel)
	stale, err := fog.Rings(ctx, filter)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	// a second insert commits before the rendered rings are cached
	other := instance.Children()[3].ChildBeginAtLevel(cells.DetailedLevel)
	_, err = discovery.Insert(ctx, &InsertRequest{Tokens: []string{other.ToToken()}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return fog.generation.Load() > generation
	}, 2*time.Second, 10*time.Millisecond)

	fog.remember(key, stale)
	fog.cache.Wait()

	rings, err := fog.Rings(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, rings, 2)
}

func TestTaskImportAndRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	path := filepath.Join(t.TempDir(), "upload.cells")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, convert.ExportCompressed(out, cells.New(detailed(0), detailed(7))))
	require.NoError(t, out.Close())

	s, err := NewTaskService(ctx, f.tasks, f.store, convert.Options{})
	require.NoError(t, err)
	defer s.Close()

	task, err := s.CreateImport(ctx, &ImportRequest{Format: convert.FormatCompressed, Path: path, Cleanup: func() { os.Remove(path) }}, "tester")
	require.NoError(t, err)
	s.Wait()

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.ProgressPercent)
	assert.Contains(t, got.ResultSummary, `"cell_count":2`)
	assert.NoFileExists(t, path)

	task, err = s.CreateRefresh(ctx, "tester")
	require.NoError(t, err)
	s.Wait()

	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)

	tasks, err := s.ListTasks(ctx, &models.TaskFilter{Kind: models.TaskKindImport})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskImportFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := NewTaskService(ctx, f.tasks, f.store, convert.Options{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateImport(ctx, &ImportRequest{Format: "shapefile", Path: "x"}, "tester")
	assert.ErrorIs(t, err, convert.ErrUnknownFormat)

	path := filepath.Join(t.TempDir(), "broken.cells")
	require.NoError(t, os.WriteFile(path, []byte("not zstd"), 0o644))
	task, err := s.CreateImport(ctx, &ImportRequest{Format: convert.FormatCompressed, Path: path}, "tester")
	require.NoError(t, err)
	s.Wait()

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestTaskServiceFailsInterruptedTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stale := &models.Task{Kind: models.TaskKindRefresh, Status: models.TaskStatusPending}
	require.NoError(t, f.tasks.Create(ctx, stale))
	require.NoError(t, f.tasks.MarkAsRunning(ctx, stale.ID))

	s, err := NewTaskService(ctx, f.tasks, f.store, convert.Options{})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetTask(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
}
