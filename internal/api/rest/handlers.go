package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/pkg/types"
)

// DeliveryIDHeader carries the id assigned to each webhook delivery
const DeliveryIDHeader = "X-Delivery-ID"

// Syncer processes an event synchronously
type Syncer interface {
	Sync(ctx context.Context, event *types.TaskEvent) (string, error)
}

// Dispatcher hands an event to a background workflow
type Dispatcher interface {
	StartSyncWorkflow(ctx context.Context, event *types.TaskEvent) (string, error)
}

// Validator classifies events without side effects
type Validator interface {
	Classify(event *types.TaskEvent) ([]types.RepoWorkItem, error)
}

// Handler handles tracker webhook requests
type Handler struct {
	engine     Syncer
	dispatcher Dispatcher
	validator  Validator
	logger     *zap.Logger
}

// NewHandler creates a handler that runs events synchronously
func NewHandler(engine Syncer, logger *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// NewAsyncHandler creates a handler that validates events and dispatches
// them to workflows
func NewAsyncHandler(validator Validator, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		validator:  validator,
		logger:     logger,
	}
}

// MessageResponse is returned for synchronously processed events
type MessageResponse struct {
	Message string `json:"message"`
}

// StartWorkflowResponse is returned for events dispatched to a workflow
type StartWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// ErrorResponse describes a rejected request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleWebhook handles POST /tareas/add and POST /api/v1/webhooks/taiga
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	deliveryID := uuid.NewString()
	w.Header().Set(DeliveryIDHeader, deliveryID)
	logger := h.logger.With(zap.String("delivery_id", deliveryID))

	var event types.TaskEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		logger.Warn("failed to decode event", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed event payload"})
		return
	}

	logger.Info("received event",
		zap.String("item_type", string(event.Type)),
		zap.Int64("item_id", event.Data.ID),
		zap.String("action", event.Action),
	)

	if h.dispatcher != nil {
		h.dispatch(w, r, &event, logger)
		return
	}

	// A disconnecting caller must not abort a run that may already have
	// created branches.
	summary, err := h.engine.Sync(context.WithoutCancel(r.Context()), &event)
	if err != nil {
		status := statusFor(err)
		logger.Warn("event rejected", zap.Int("status", status), zap.Error(err))
		writeJSON(w, status, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: summary})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, event *types.TaskEvent, logger *zap.Logger) {
	items, err := h.validator.Classify(event)
	if err != nil {
		logger.Warn("event rejected", zap.Error(err))
		writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	if len(items) == 0 || items[0].Action == types.ActionNoOp {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "No repository action required"})
		return
	}

	workflowID, err := h.dispatcher.StartSyncWorkflow(r.Context(), event)
	if err != nil {
		logger.Error("failed to start workflow", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to start workflow"})
		return
	}

	writeJSON(w, http.StatusAccepted, StartWorkflowResponse{
		WorkflowID: workflowID,
		Status:     "started",
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterRoutes registers REST API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Post("/tareas/add", h.HandleWebhook)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/taiga", h.HandleWebhook)
	})
}

func statusFor(err error) int {
	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
