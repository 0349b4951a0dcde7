package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/pipeline"
	"github.com/markdave123-py/Memora/internal/models"
)

// TaskController is what the handler needs from the processing pipeline.
type TaskController interface {
	Status(ctx context.Context, taskID string) (*models.TaskRecord, error)
	Cancel(taskID string) error
	Metrics() pipeline.Stats
}

type TaskHandler struct {
	tasks TaskController
}

func NewTaskHandler(tasks TaskController) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// GetStatus reports a task's progress. Tasks belonging to other users read
// as missing.
func (h *TaskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	taskID := chi.URLParam(r, "taskID")

	rec, err := h.tasks.Status(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil || rec.UserID != userID {
		writeError(w, fmt.Errorf("%w: task %s", core.ErrNotFound, taskID))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Cancel stops an active task. Terminal tasks answer 409.
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	taskID := chi.URLParam(r, "taskID")

	rec, err := h.tasks.Status(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil || rec.UserID != userID {
		writeError(w, fmt.Errorf("%w: task %s", core.ErrNotFound, taskID))
		return
	}

	if err := h.tasks.Cancel(taskID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID, "status": pipeline.StatusCancelled})
}

// Metrics reports aggregate pipeline throughput.
func (h *TaskHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.Metrics())
}
