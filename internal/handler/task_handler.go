package handler

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/fog-backend-go/internal/convert"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/service"
	"github.com/jengzang/fog-backend-go/pkg/response"
)

// TaskHandler handles HTTP requests for imports and background tasks
type TaskHandler struct {
	service *service.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(service *service.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Import saves an uploaded file and starts importing it
// POST /api/v1/imports?format=
func (h *TaskHandler) Import(c *gin.Context) {
	format := c.Query("format")
	if format == "" {
		response.BadRequest(c, "Missing format")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "Missing file")
		return
	}

	dir, err := os.MkdirTemp("", "fog-import-")
	if err != nil {
		respondError(c, err)
		return
	}
	path := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		os.RemoveAll(dir)
		respondError(c, err)
		return
	}

	// sync files are named by their tile, so the upload keeps its name
	task, err := h.service.CreateImport(c.Request.Context(), &service.ImportRequest{
		Format:  format,
		Path:    path,
		Cleanup: func() { os.RemoveAll(dir) },
	}, currentUser(c))
	if err != nil {
		os.RemoveAll(dir)
		respondError(c, err)
		return
	}

	response.Accepted(c, task)
}

// Formats lists the import formats
// GET /api/v1/imports/formats
func (h *TaskHandler) Formats(c *gin.Context) {
	response.Success(c, convert.Formats())
}

// Refresh starts rebuilding every statistic
// POST /api/v1/statistics/refresh
func (h *TaskHandler) Refresh(c *gin.Context) {
	task, err := h.service.CreateRefresh(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Accepted(c, task)
}

// GetTask retrieves a task by ID
// GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, task)
}

// ListTasks retrieves all tasks
// GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var filter models.TaskFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"tasks":  tasks,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}
