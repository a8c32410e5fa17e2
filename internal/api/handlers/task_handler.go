package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/TWRT/sprint-manager/internal/api/middleware"
	"github.com/TWRT/sprint-manager/internal/api/response"
	"github.com/TWRT/sprint-manager/internal/client/calendar"
	"github.com/TWRT/sprint-manager/internal/logging"
	"github.com/TWRT/sprint-manager/internal/models"
	"github.com/TWRT/sprint-manager/internal/service"
)

const notFoundMessage = "Sorry a task with that id was not found in the database."

type TaskHandler struct {
	syncService *service.SyncService
	logger      *slog.Logger
}

func NewTaskHandler(syncService *service.SyncService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		syncService: syncService,
		logger:      logger,
	}
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	tasks, err := h.syncService.ListTasks(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
	})
}

func (h *TaskHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	reqBody, err := decodeTaskRequest(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindBadRequest, "Error trying to read the body: "+err.Error())
		return
	}

	task, err := h.syncService.CreateTask(r.Context(), caller, reqBody.TaskName, reqBody.TaskTime)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success": "Successfully added new task.",
		"task":    task,
	})
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	reqBody, err := decodeTaskRequest(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindBadRequest, "Error trying to read the body: "+err.Error())
		return
	}
	if reqBody.ID <= 0 {
		response.Error(w, http.StatusNotFound, response.KindNotFound, notFoundMessage)
		return
	}

	if err := h.syncService.DeleteTask(r.Context(), caller, int64(reqBody.ID)); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{
		"success": "Successfully deleted task.",
	})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	reqBody, err := decodeTaskRequest(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindBadRequest, "Error trying to read the body: "+err.Error())
		return
	}
	if reqBody.ID <= 0 {
		response.Error(w, http.StatusNotFound, response.KindNotFound, notFoundMessage)
		return
	}

	task, err := h.syncService.UpdateTask(r.Context(), caller, int64(reqBody.ID), reqBody.TaskName, reqBody.TaskTime)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success": "Successfully updated the task.",
		"task":    task,
	})
}

func (h *TaskHandler) caller(w http.ResponseWriter, r *http.Request) (models.Caller, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.KindUnauthenticated, "A session cookie is required.")
	}
	return caller, ok
}

func (h *TaskHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *calendar.RemoteRejectedError

	switch {
	case errors.Is(err, service.ErrValidation):
		response.Error(w, http.StatusNotFound, response.KindValidation, "task_name or task_time must be provided.")
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, http.StatusNotFound, response.KindNotFound, notFoundMessage)
	case errors.As(err, &rejected):
		status := rejected.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		response.Error(w, status, response.KindCalendarRejected, rejected.Error())
	case errors.Is(err, calendar.ErrRemoteUnreachable), errors.Is(err, calendar.ErrMalformedEvent):
		response.Error(w, http.StatusBadGateway, response.KindCalendarUnreachable, "The calendar service could not be reached.")
	default:
		h.logger.Error("request failed",
			logging.RequestID(middleware.RequestIDFromContext(r.Context())),
			logging.Err(err),
		)
		response.Error(w, http.StatusInternalServerError, response.KindInternal, "Something went wrong while handling the task.")
	}
}
