// internal/api/http/task_handler.go
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobpool/internal/domain"
	"jobpool/internal/metrics"
	"jobpool/internal/pool"
	"jobpool/internal/scheduler"
	"jobpool/internal/usecase"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TaskHandler serves the /tasks/ API.
type TaskHandler struct {
	service  *usecase.TaskService
	metrics  *metrics.Metrics
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
}

// NewTaskHandler creates a TaskHandler with its request validator.
func NewTaskHandler(service *usecase.TaskService, m *metrics.Metrics, logger *slog.Logger) *TaskHandler {
	validate := validator.New()

	_ = validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := scheduler.Parser.Parse(fl.Field().String())
		return err == nil
	})

	_ = validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})

	return &TaskHandler{
		service:  service,
		metrics:  m,
		logger:   logger.With("component", "task-handler"),
		validate: validate,
		tracer:   otel.Tracer("jobpool-api"),
	}
}

// RegisterRoutes registers task routes to the http.ServeMux.
func (h *TaskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/tasks/", instrument(h.tracer, h.metrics, taskRoute, http.HandlerFunc(h.handleTasks)))
}

// taskRoute names the route a request matches, for metrics and span names.
func taskRoute(r *http.Request) string {
	parts := splitPath(r.URL.Path)
	switch len(parts) {
	case 0, 1:
		return "/tasks/"
	case 2:
		return "/tasks/{name}"
	case 3:
		return "/tasks/{name}/" + parts[2]
	default:
		return "/tasks/{name}/" + parts[2] + "/{id}"
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// handleTasks is a general dispatcher for the /tasks/ path.
func (h *TaskHandler) handleTasks(w http.ResponseWriter, r *http.Request) {
	// e.g. /tasks/backup/history/abc -> ["tasks", "backup", "history", "abc"]
	pathParts := splitPath(r.URL.Path)
	if len(pathParts) < 1 || pathParts[0] != "tasks" || len(pathParts) > 4 {
		http.NotFound(w, r)
		return
	}

	var name, action, id string
	if len(pathParts) > 1 {
		name = pathParts[1]
	}
	if len(pathParts) > 2 {
		action = pathParts[2]
	}
	if len(pathParts) > 3 {
		id = pathParts[3]
	}

	switch {
	case r.Method == http.MethodGet && name == "":
		h.handleListTasks(w, r)
	case (r.Method == http.MethodPost || r.Method == http.MethodPut) && name == "":
		h.handleSaveTask(w, r)
	case r.Method == http.MethodDelete && name == "":
		http.Error(w, "Task name is required for deletion", http.StatusBadRequest)
	case r.Method == http.MethodGet && action == "":
		h.handleGetTask(w, r, name)
	case r.Method == http.MethodDelete && action == "":
		h.handleDeleteTask(w, r, name)
	case r.Method == http.MethodPost && action == "run" && id == "":
		h.handleRunTask(w, r, name)
	case r.Method == http.MethodGet && action == "history" && id == "":
		h.handleGetTaskHistory(w, r, name)
	case r.Method == http.MethodGet && action == "history":
		h.handleGetExecution(w, r, name, id)
	case action != "" && action != "run" && action != "history":
		http.NotFound(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSaveTask handles POST /tasks/ with DTO validation.
func (h *TaskHandler) handleSaveTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.SaveTask")
	defer span.End()

	var req SaveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "Failed to decode request body")
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		span.RecordError(err)
		var validationErrors []string
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors,
					"Field '"+fe.Field()+"' failed on the '"+fe.Tag()+"' tag.",
				)
			}
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"details": validationErrors,
		})
		return
	}

	task := req.ToDomainTask()
	span.SetAttributes(attribute.String("task.name", task.Name))

	if err := h.service.Save(ctx, task); err != nil {
		span.SetStatus(codes.Error, "Failed to save task in service")
		span.RecordError(err)
		if errors.Is(err, usecase.ErrInvalidTask) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		h.logger.Error("error saving task", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) handleDeleteTask(w http.ResponseWriter, r *http.Request, name string) {
	ctx, span := h.tracer.Start(r.Context(), "handler.DeleteTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	if err := h.service.Delete(ctx, name); err != nil {
		span.SetStatus(codes.Error, "Failed to delete task in service")
		span.RecordError(err)
		h.writeError(w, err, "error deleting task", "task_name", name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) handleGetTask(w http.ResponseWriter, r *http.Request, name string) {
	ctx, span := h.tracer.Start(r.Context(), "handler.GetTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	task, err := h.service.Get(ctx, name)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to get task from service")
		span.RecordError(err)
		h.writeError(w, err, "error getting task", "task_name", name)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.ListTasks")
	defer span.End()

	tasks, err := h.service.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to list tasks from service")
		span.RecordError(err)
		h.writeError(w, err, "error listing tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// handleRunTask handles POST /tasks/{name}/run.
func (h *TaskHandler) handleRunTask(w http.ResponseWriter, r *http.Request, name string) {
	ctx, span := h.tracer.Start(r.Context(), "handler.RunTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	executionID, err := h.service.Run(ctx, name)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to run task")
		span.RecordError(err)
		if errors.Is(err, pool.ErrPoolClosed) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error":        err.Error(),
				"execution_id": executionID,
			})
			return
		}
		h.writeError(w, err, "error running task", "task_name", name)
		return
	}
	writeJSON(w, http.StatusAccepted, RunResponse{ExecutionID: executionID})
}

// handleGetTaskHistory handles GET /tasks/{name}/history?page=&pageSize=.
func (h *TaskHandler) handleGetTaskHistory(w http.ResponseWriter, r *http.Request, name string) {
	ctx, span := h.tracer.Start(r.Context(), "handler.GetTaskHistory")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	span.SetAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize))

	history, err := h.service.ListHistory(ctx, name, page, pageSize)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to list task history")
		span.RecordError(err)
		h.writeError(w, err, "error listing task history", "task_name", name)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *TaskHandler) handleGetExecution(w http.ResponseWriter, r *http.Request, name, executionID string) {
	ctx, span := h.tracer.Start(r.Context(), "handler.GetExecution")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name), attribute.String("execution.id", executionID))

	record, err := h.service.GetExecution(ctx, name, executionID)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to get execution")
		span.RecordError(err)
		h.writeError(w, err, "error getting execution", "task_name", name, "execution_id", executionID)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// writeError maps service errors to status codes. Unexpected errors are logged.
func (h *TaskHandler) writeError(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound), errors.Is(err, domain.ErrExecutionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error(msg, append(args, "error", err)...)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
