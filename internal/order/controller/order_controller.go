package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tiffin/internal/domain"
	"tiffin/internal/dto"
	apperrors "tiffin/internal/errors"
	"tiffin/internal/identity"
	"tiffin/internal/order/cache"
	"tiffin/internal/order/service"
	"tiffin/internal/order/usecase"
	"tiffin/internal/order/view"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransitionUseCase interface {
	Execute(ctx context.Context, actor domain.Actor, req usecase.TransitionRequest, c *cache.LocalOrderCache) (*usecase.TransitionResult, error)
}

type OrderQueryUseCase interface {
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error)
	List(ctx context.Context, actor domain.Actor, name view.Name) ([]domain.Order, error)
	Place(ctx context.Context, actor domain.Actor, order domain.Order) (*domain.Order, error)
}

type EarningsUseCase interface {
	Get(ctx context.Context, actor domain.Actor) (*usecase.Earnings, error)
}

// ScreenFactory builds an unmounted screen for actor over v.
type ScreenFactory func(actor domain.Actor, v view.View) *service.Screen

type OrderController struct {
	transitions TransitionUseCase
	queries     OrderQueryUseCase
	earnings    EarningsUseCase
	screens     *service.ScreenRegistry
	newScreen   ScreenFactory
	logger      *zap.Logger
	heartbeat   time.Duration
}

func NewOrderController(
	transitions TransitionUseCase,
	queries OrderQueryUseCase,
	earnings EarningsUseCase,
	screens *service.ScreenRegistry,
	newScreen ScreenFactory,
	logger *zap.Logger,
) *OrderController {
	return &OrderController{
		transitions: transitions,
		queries:     queries,
		earnings:    earnings,
		screens:     screens,
		newScreen:   newScreen,
		logger:      logger,
		heartbeat:   15 * time.Second,
	}
}

func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	actor, _ := identity.ActorFrom(r.Context())
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	order, err := c.queries.Get(r.Context(), actor, orderID)
	if err != nil {
		c.handleUseCaseError(w, traceID, orderID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.FromOrder(*order, actor))
}

func (c *OrderController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	actor, _ := identity.ActorFrom(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	order, err := c.queries.Place(r.Context(), actor, req.ToOrder())
	if err != nil {
		c.handleUseCaseError(w, traceID, "", err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.FromOrder(*order, actor))
}

// Transition runs a status change without a mounted screen.
func (c *OrderController) Transition(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, nil)
}

// ScreenTransition runs a status change against a mounted screen so its cache
// gets the optimistic update and its rollback.
func (c *OrderController) ScreenTransition(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	actor, _ := identity.ActorFrom(r.Context())
	screenID := chi.URLParam(r, "screenId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("screenId", screenID))

	screen, ok := c.screens.Get(screenID)
	if !ok {
		c.writeErrorResponse(w, traceID, "", http.StatusNotFound, "NOT_FOUND", "screen not mounted", logger)
		return
	}
	if screen.Actor.ID != actor.ID {
		c.writeErrorResponse(w, traceID, "", http.StatusForbidden, "FORBIDDEN", "screen belongs to another actor", logger)
		return
	}

	c.transition(w, r, screen.Cache())
}

func (c *OrderController) transition(w http.ResponseWriter, r *http.Request, local *cache.LocalOrderCache) {
	traceID := uuid.New().String()
	actor, _ := identity.ActorFrom(r.Context())
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	var req dto.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		c.writeValidationError(w, "validation failed", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be a known order status",
		})
		return
	}

	ucReq := usecase.TransitionRequest{OrderID: orderID, To: to}
	if req.Payment != nil {
		ucReq.Payment = &usecase.PaymentConfirmation{Method: strings.TrimSpace(req.Payment.Method)}
	}

	result, err := c.transitions.Execute(r.Context(), actor, ucReq, local)
	if err != nil {
		c.handleUseCaseError(w, traceID, orderID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.TransitionResponse{
		TraceID:   traceID,
		Order:     dto.FromOrder(result.Order, actor),
		Timestamp: time.Now().UTC(),
	})
}

func (c *OrderController) ListView(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	actor, _ := identity.ActorFrom(r.Context())
	name := view.Name(chi.URLParam(r, "view"))
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("view", string(name)))

	orders, err := c.queries.List(r.Context(), actor, name)
	if err != nil {
		c.handleUseCaseError(w, traceID, "", err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.ViewResponse{
		View:   string(name),
		Orders: dto.FromOrders(orders, actor),
	})
}

func (c *OrderController) GetEarnings(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	actor, _ := identity.ActorFrom(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID))

	e, err := c.earnings.Get(r.Context(), actor)
	if err != nil {
		c.handleUseCaseError(w, traceID, "", err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.EarningsResponse{
		ActorID:         e.ActorID,
		Role:            string(e.Role),
		CompletedOrders: e.CompletedOrders,
		Total:           e.Total,
		RefreshedAt:     e.RefreshedAt,
	})
}

func (c *OrderController) handleUseCaseError(w http.ResponseWriter, traceID string, orderID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusNotFound, "NOT_FOUND", err.Error(), logger)
		return
	}

	if _, ok := apperrors.IsForbiddenError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusForbidden, "FORBIDDEN", err.Error(), logger)
		return
	}

	if _, ok := apperrors.IsGuardFailedError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusConflict, "ORDER_UNAVAILABLE", err.Error(), logger)
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusConflict, "CONFLICT", err.Error(), logger)
		return
	}

	if _, ok := apperrors.IsTransientError(err); ok {
		logger.Warn("transient failure", zap.Error(err))
		c.writeErrorResponse(w, traceID, orderID, http.StatusServiceUnavailable, "RETRYABLE", "temporary failure, try again", logger)
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, orderID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred", logger)
}

func (c *OrderController) writeErrorResponse(w http.ResponseWriter, traceID string, orderID string, statusCode int, code string, message string, logger *zap.Logger) {
	response := dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}

	c.writeJSON(w, statusCode, response)
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *OrderController) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	response := validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	}

	c.writeJSON(w, http.StatusBadRequest, response)
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}

// RefreshScreen reloads a mounted screen from the store. The stream picks up
// the new content through its change signal.
func (c *OrderController) RefreshScreen(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	actor, _ := identity.ActorFrom(r.Context())
	screenID := chi.URLParam(r, "screenId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("screenId", screenID))

	screen, ok := c.screens.Get(screenID)
	if !ok {
		c.writeErrorResponse(w, traceID, "", http.StatusNotFound, "NOT_FOUND", "screen not mounted", logger)
		return
	}
	if screen.Actor.ID != actor.ID {
		c.writeErrorResponse(w, traceID, "", http.StatusForbidden, "FORBIDDEN", "screen belongs to another actor", logger)
		return
	}

	if err := screen.Refresh(r.Context()); err != nil {
		c.handleUseCaseError(w, traceID, "", err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
