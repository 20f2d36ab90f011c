package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// TasksHandler manages the per-client relocation checklist.
type TasksHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(st store.Store, logger *slog.Logger) *TasksHandler {
	return &TasksHandler{store: st, logger: logger}
}

type taskRequest struct {
	Title   string  `json:"title"`
	Notes   string  `json:"notes,omitempty"`
	DueDate *string `json:"due_date,omitempty"` // YYYY-MM-DD
}

// Create appends a task to the client's checklist.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	if _, err := fetchAuthorizedClient(r.Context(), h.store, caller, clientID); err != nil {
		writeAccessError(w, err)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	task := &models.Task{
		ClientID: clientID,
		Title:    req.Title,
		Notes:    req.Notes,
	}
	if req.DueDate != nil && *req.DueDate != "" {
		dueDate, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			WriteBadRequest(w, "due_date must be a YYYY-MM-DD date")
			return
		}
		task.DueDate = &dueDate
	}
	if err := task.Validate(); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.Tasks().Create(r.Context(), task); err != nil {
		h.logger.Error("failed to create task", "error", err)
		WriteInternalError(w, "Failed to create task")
		return
	}

	WriteJSON(w, http.StatusCreated, task)
}

// List returns the client's checklist in position order.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	if _, err := fetchAuthorizedClient(r.Context(), h.store, caller, clientID); err != nil {
		writeAccessError(w, err)
		return
	}

	tasks, err := h.store.Tasks().ListByClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to list tasks", "error", err)
		WriteInternalError(w, "Failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// fetchAuthorizedTask loads a task and checks checklist access through
// its owning client.
func (h *TasksHandler) fetchAuthorizedTask(w http.ResponseWriter, r *http.Request) *models.Task {
	caller := middleware.GetCaller(r.Context())
	taskID := chi.URLParam(r, "taskID")

	task, err := h.store.Tasks().Get(r.Context(), taskID)
	if err != nil {
		h.logger.Error("failed to fetch task", "error", err)
		WriteInternalError(w, "Failed to fetch task")
		return nil
	}
	if task == nil {
		WriteNotFound(w, "Task not found")
		return nil
	}

	if _, err := fetchAuthorizedClient(r.Context(), h.store, caller, task.ClientID); err != nil {
		writeAccessError(w, err)
		return nil
	}
	return task
}

// Update patches a task's fields.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	task := h.fetchAuthorizedTask(w, r)
	if task == nil {
		return
	}

	var req struct {
		Title   *string `json:"title,omitempty"`
		Notes   *string `json:"notes,omitempty"`
		DueDate *string `json:"due_date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			task.DueDate = nil
		} else {
			dueDate, err := time.Parse("2006-01-02", *req.DueDate)
			if err != nil {
				WriteBadRequest(w, "due_date must be a YYYY-MM-DD date")
				return
			}
			task.DueDate = &dueDate
		}
	}
	if err := task.Validate(); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.Tasks().Update(r.Context(), task); err != nil {
		h.logger.Error("failed to update task", "error", err)
		WriteInternalError(w, "Failed to update task")
		return
	}

	WriteJSON(w, http.StatusOK, task)
}

// Delete removes a task.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task := h.fetchAuthorizedTask(w, r)
	if task == nil {
		return
	}

	if err := h.store.Tasks().Delete(r.Context(), task.ID); err != nil {
		h.logger.Error("failed to delete task", "error", err)
		WriteInternalError(w, "Failed to delete task")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Complete marks a task done. Completing a completed task is a no-op.
func (h *TasksHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.setCompletion(w, r, true)
}

// Reopen clears a task's completion.
func (h *TasksHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.setCompletion(w, r, false)
}

func (h *TasksHandler) setCompletion(w http.ResponseWriter, r *http.Request, done bool) {
	task := h.fetchAuthorizedTask(w, r)
	if task == nil {
		return
	}

	var completedAt *time.Time
	if done {
		if task.Completed() {
			WriteJSON(w, http.StatusOK, task)
			return
		}
		now := time.Now()
		completedAt = &now
	}

	if err := h.store.Tasks().SetCompleted(r.Context(), task.ID, completedAt); err != nil {
		h.logger.Error("failed to set task completion", "error", err)
		WriteInternalError(w, "Failed to update task")
		return
	}

	task.CompletedAt = completedAt
	WriteJSON(w, http.StatusOK, task)
}
