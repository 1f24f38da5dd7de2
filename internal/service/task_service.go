package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jengzang/fog-backend-go/internal/convert"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/repository"
	"github.com/jengzang/fog-backend-go/internal/store"
)

// ImportRequest describes a file to import in the background
type ImportRequest struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	// Cleanup runs once the import ends, uploads use it to remove the file
	Cleanup func() `json:"-"`
}

// TaskService runs imports and refreshes in the background and records
// their progress
type TaskService struct {
	repo    *repository.TaskRepository
	store   *store.Store
	options convert.Options

	// 后台任务的根 context
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewTaskService creates a new task service. Tasks left running by a previous
// process are marked as failed.
func NewTaskService(ctx context.Context, repo *repository.TaskRepository, st *store.Store, options convert.Options) (*TaskService, error) {
	interrupted, err := repo.FailInterrupted(ctx)
	if err != nil {
		return nil, err
	}
	if interrupted > 0 {
		logger.S().Warnf("[Task] marked %d interrupted tasks as failed", interrupted)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TaskService{
		repo:    repo,
		store:   st,
		options: options,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// CreateImport creates an import task and starts it
func (s *TaskService) CreateImport(ctx context.Context, req *ImportRequest, createdBy string) (*models.Task, error) {
	converter, err := convert.GetConverter(req.Format, req.Path, s.options)
	if err != nil {
		return nil, err
	}

	params, err := json.Marshal(map[string]string{
		"format": req.Format,
		"file":   filepath.Base(req.Path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize params: %w", err)
	}

	task := &models.Task{
		Kind:       models.TaskKindImport,
		Status:     models.TaskStatusPending,
		ParamsJSON: string(params),
		CreatedBy:  createdBy,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.start(task, func(ctx context.Context, p *progress.Progress) (interface{}, error) {
		if req.Cleanup != nil {
			defer req.Cleanup()
		}
		// 转换占一半进度，写入占另一半
		converting := p.AddChild(1)
		converting.SetTotal(1000)
		converter.Progress().OnChange(func(f float64) {
			converting.SetCompleted(int64(f * 1000))
		})
		c, err := converter.Convert(ctx)
		if err != nil {
			return nil, err
		}
		converting.Finish()
		result, err := s.store.InsertFrom(ctx, req.Format, c, p.AddChild(1))
		if err != nil {
			return nil, err
		}
		logger.S().Infof("[Task] task %d imported %d cells, %s newly discovered",
			task.ID, result.CellCount, humanizeArea(result.Area))
		return result, nil
	})
	return task, nil
}

// CreateRefresh creates a refresh task and starts it
func (s *TaskService) CreateRefresh(ctx context.Context, createdBy string) (*models.Task, error) {
	task := &models.Task{
		Kind:      models.TaskKindRefresh,
		Status:    models.TaskStatusPending,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.start(task, func(ctx context.Context, p *progress.Progress) (interface{}, error) {
		if err := s.store.RefreshStatistics(ctx, p); err != nil {
			return nil, err
		}
		return map[string]string{"message": "statistics rebuilt"}, nil
	})
	return task, nil
}

type taskFunc func(ctx context.Context, p *progress.Progress) (interface{}, error)

func (s *TaskService) start(task *models.Task, run taskFunc) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.execute(task.ID, run)
	}()
}

// execute runs one task and records its outcome
func (s *TaskService) execute(id int64, run taskFunc) {
	ctx := s.ctx
	logger.S().Infof("[Task] starting task %d", id)

	if err := s.repo.MarkAsRunning(ctx, id); err != nil {
		logger.S().Errorf("[Task] failed to start task %d: %v", id, err)
		return
	}

	p := progress.New(2)
	var mu sync.Mutex
	last := 0
	p.OnChange(func(f float64) {
		percent := int(f * 100)
		mu.Lock()
		defer mu.Unlock()
		if percent <= last || percent >= 100 {
			return
		}
		last = percent
		if err := s.repo.UpdateProgress(ctx, id, percent); err != nil {
			logger.S().Warnf("[Task] failed to update progress of task %d: %v", id, err)
		}
	})

	result, err := run(ctx, p)
	if err != nil {
		logger.S().Errorf("[Task] task %d failed: %v", id, err)
		if err := s.repo.MarkAsFailed(context.Background(), id, err.Error()); err != nil {
			logger.S().Errorf("[Task] failed to mark task %d as failed: %v", id, err)
		}
		return
	}

	summary, err := json.Marshal(result)
	if err != nil {
		summary = []byte("{}")
	}
	if err := s.repo.MarkAsCompleted(ctx, id, string(summary)); err != nil {
		logger.S().Errorf("[Task] failed to complete task %d: %v", id, err)
		return
	}
	logger.S().Infof("[Task] task %d completed", id)
}

// GetTask retrieves a task by ID
func (s *TaskService) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	return s.repo.GetByID(ctx, id)
}

// ListTasks retrieves tasks with optional filters
func (s *TaskService) ListTasks(ctx context.Context, filter *models.TaskFilter) ([]*models.Task, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Wait blocks until every started task has ended
func (s *TaskService) Wait() {
	s.running.Wait()
}

// Close cancels running tasks and waits for them
func (s *TaskService) Close() {
	s.cancel()
	s.running.Wait()
}

func humanizeArea(m2 float64) string {
	if m2 >= 1e6 {
		return humanize.CommafWithDigits(m2/1e6, 2) + " km²"
	}
	return humanize.CommafWithDigits(m2, 0) + " m²"
}
