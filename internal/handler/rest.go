package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-api/internal/middleware"
	"github.com/vyrodovalexey/todo-api/internal/model"
	"github.com/vyrodovalexey/todo-api/internal/store"
	"github.com/vyrodovalexey/todo-api/internal/validation"
)

// Version is the application version.
const Version = "1.0.0"

// RootMessage is the plain-text liveness message served on GET /.
const RootMessage = "Todo API is running"

const (
	maxBodyBytes = 1 << 20 // 1 MB
	readyTimeout = 2 * time.Second
)

// TodoHandler handles REST API requests for todos.
type TodoHandler struct {
	store     store.Store
	validator *validation.Validator
	logger    *zap.Logger
}

// NewTodoHandler creates a new TodoHandler instance.
func NewTodoHandler(s store.Store, v *validation.Validator, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{
		store:     s,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *TodoHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Root).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/todos", h.ListTodos).Methods(http.MethodGet)
	router.HandleFunc("/todos", h.CreateTodo).Methods(http.MethodPost)
	router.HandleFunc("/todos/{id}", h.GetTodo).Methods(http.MethodGet)
	router.HandleFunc("/todos/{id}", h.UpdateTodo).Methods(http.MethodPut)
	router.HandleFunc("/todos/{id}", h.DeleteTodo).Methods(http.MethodDelete)
}

// Root handles GET / requests.
func (h *TodoHandler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, RootMessage)
}

// HealthCheck handles GET /health requests.
func (h *TodoHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
	})
}

// ReadyCheck handles GET /ready requests by pinging the store.
func (h *TodoHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not ready"})
		return
	}

	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
}

// ListTodos handles GET /todos requests.
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.List(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list todos")
		return
	}

	h.writeJSON(w, http.StatusOK, todos)
}

// GetTodo handles GET /todos/{id} requests.
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	todo, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "get todo")
		return
	}

	h.writeJSON(w, http.StatusOK, todo)
}

// CreateTodo handles POST /todos requests.
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	if err := h.validator.ValidateCreate(body); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var input model.CreateTodoInput
	if err := json.Unmarshal(body, &input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	todo, err := h.store.Create(r.Context(), &input)
	if err != nil {
		h.handleStoreError(w, err, "create todo")
		return
	}

	h.logger.Info("todo created",
		zap.String("id", todo.ID),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	h.writeJSON(w, http.StatusCreated, todo)
}

// UpdateTodo handles PUT /todos/{id} requests.
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	if err := h.validator.ValidateUpdate(body); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var input model.UpdateTodoInput
	if err := json.Unmarshal(body, &input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	todo, err := h.store.Update(r.Context(), id, &input)
	if err != nil {
		h.handleStoreError(w, err, "update todo")
		return
	}

	h.writeJSON(w, http.StatusOK, todo)
}

// DeleteTodo handles DELETE /todos/{id} requests.
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.handleStoreError(w, err, "delete todo")
		return
	}

	h.logger.Info("todo deleted",
		zap.String("id", id),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	h.writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Todo deleted"})
}

// readBody reads the request body up to maxBodyBytes. On failure it writes
// a 400 response and returns false.
func (h *TodoHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return body, true
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *TodoHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "todo not found")
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid todo ID")
	case errors.Is(err, model.ErrEmptyText), errors.Is(err, model.ErrNilInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
			Details: err.Error(),
		})
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *TodoHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *TodoHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
