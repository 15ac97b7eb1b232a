package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/nferrell/taskpool-api/internal/api/shared"
	"github.com/nferrell/taskpool-api/internal/domain"
	"github.com/nferrell/taskpool-api/internal/task"
)

// TaskService is the dispatcher contract the HTTP layer consumes.
type TaskService interface {
	// Submit enqueues a task for asynchronous processing and returns
	// immediately.
	Submit(payload string) (*domain.Task, error)

	// Stats returns a consistent snapshot of the aggregate metrics.
	Stats() task.Stats
}

// TaskHandler handles task submission and statistics HTTP requests.
type TaskHandler struct {
	service TaskService
	logger  *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger,
	}
}

// CreateTask handles POST /tasks requests. Validation failures are the only
// errors a caller ever sees; after the 201 response, task outcomes are
// observable exclusively through GET /statistics.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: message is required")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: message must not be blank")
		return
	}

	t, err := h.service.Submit(message)
	if err != nil {
		h.logger.Error("failed to submit task", "error", err)
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Service is shutting down")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateTaskResponse{ID: t.ID.String()})
}

// GetStatistics handles GET /statistics requests.
func (h *TaskHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.service.Stats())
}
