package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/order/cache"
)

type OrderStore interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, guard domain.StatusGuard, change domain.StatusChange) (int64, error)
}

// CompletionHook runs after a completion write succeeded, with the order as
// written.
type CompletionHook interface {
	OrderCompleted(ctx context.Context, order domain.Order) error
}

type PaymentConfirmation struct {
	Method string
}

type TransitionRequest struct {
	OrderID string
	To      domain.Status
	Payment *PaymentConfirmation
}

type TransitionResult struct {
	Order   domain.Order
	Applied bool
}

type TransitionUseCase struct {
	store        OrderStore
	onComplete   CompletionHook
	metrics      *metrics.Metrics
	logger       *zap.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

func NewTransitionUseCase(
	store OrderStore,
	onComplete CompletionHook,
	m *metrics.Metrics,
	logger *zap.Logger,
	writeTimeout time.Duration,
) *TransitionUseCase {
	return &TransitionUseCase{
		store:        store,
		onComplete:   onComplete,
		metrics:      m,
		logger:       logger,
		writeTimeout: writeTimeout,
		now:          storeNow,
	}
}

// storeNow matches the microsecond precision of updated_at in every store, so
// an optimistic copy never looks newer than its own echo.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Execute moves one order to req.To on behalf of actor. When c is a mounted
// screen's cache the new state is applied there before the write and reverted
// if the write does not land. Exactly one conditional write is issued; nothing
// is retried.
func (uc *TransitionUseCase) Execute(
	ctx context.Context,
	actor domain.Actor,
	req TransitionRequest,
	c *cache.LocalOrderCache,
) (*TransitionResult, error) {
	// Bloque 1: Validación de la solicitud
	if err := validateRequest(actor, req); err != nil {
		uc.observe(req.To, "rejected")
		return nil, err
	}

	logger := uc.logger.With(
		zap.String("orderId", req.OrderID),
		zap.String("actorId", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("to", string(req.To)),
	)

	// Bloque 2: Estado actual (cache local primero, si no el store)
	current, fromCache, err := uc.currentState(ctx, req.OrderID, c)
	if err != nil {
		uc.observe(req.To, "rejected")
		return nil, err
	}

	// Bloque 3: Reglas de transición y propiedad
	rule, err := checkTransition(actor, current, req)
	if _, lost := errors.IsGuardFailedError(err); lost && fromCache {
		// The cached copy may lag the store; resync and decide once more on the
		// authoritative row.
		current, err = uc.load(ctx, req.OrderID)
		if err != nil {
			if _, gone := errors.IsNotFoundError(err); gone {
				c.Remove(req.OrderID)
			}
			uc.observe(req.To, "rejected")
			return nil, err
		}
		c.Put(current)
		rule, err = checkTransition(actor, current, req)
	}
	if err != nil {
		uc.observe(req.To, outcomeOf(err))
		logger.Info("transition refused", zap.String("from", string(current.Status)), zap.Error(err))
		return nil, err
	}

	now := uc.now()
	guard := domain.GuardFor(rule, actor)
	change := domain.StatusChange{Status: req.To, UpdatedAt: now}
	if rule.Guard == domain.GuardClaim {
		change.DelivererID = domain.StringPtr(actor.ID)
	}
	if rule.RequiresPayment {
		change.CompletedAt = &now
		change.PaymentMethod = domain.StringPtr(req.Payment.Method)
	}

	// Bloque 4: Actualización optimista
	optimistic := change.Apply(current)
	var prior domain.Order
	var hadPrior bool
	if c != nil {
		prior, hadPrior = c.Get(req.OrderID)
		c.Put(optimistic)
	}

	// Bloque 5: Escritura condicional única
	affected, err := uc.write(ctx, req.OrderID, guard, change)
	if err != nil {
		uc.rollback(ctx, c, req.OrderID, prior, hadPrior, logger)
		classified := classifyWriteError(err)
		uc.observe(req.To, outcomeOf(classified))
		logger.Warn("transition write failed", zap.Error(err))
		return nil, classified
	}

	if affected == 0 {
		uc.rollback(ctx, c, req.OrderID, prior, hadPrior, logger)
		uc.observe(req.To, "guard_failed")
		logger.Info("transition lost the race", zap.String("from", string(current.Status)))
		return nil, errors.NewGuardFailedError(req.OrderID, "order no longer available")
	}

	// Bloque 6: Hooks posteriores a la escritura
	uc.observe(req.To, "applied")
	logger.Info("transition applied", zap.String("from", string(current.Status)))
	if req.To == domain.StatusCompleted && uc.onComplete != nil {
		if err := uc.onComplete.OrderCompleted(ctx, optimistic); err != nil {
			logger.Warn("refreshing earnings after completion failed", zap.Error(err))
		}
	}

	return &TransitionResult{Order: optimistic, Applied: true}, nil
}

func validateRequest(actor domain.Actor, req TransitionRequest) error {
	if actor.ID == "" || !actor.Role.IsValid() {
		return errors.NewForbiddenError("no authenticated actor")
	}

	var details []errors.ValidationDetail
	if req.OrderID == "" {
		details = append(details, errors.ValidationDetail{Field: "orderId", Message: "is required"})
	}
	if !req.To.IsValid() {
		details = append(details, errors.ValidationDetail{Field: "status", Message: "must be a known order status"})
	}
	if len(details) > 0 {
		return errors.NewValidationError("invalid transition request", details...)
	}
	return nil
}

// currentState prefers the screen's cached copy and reports whether it used it.
func (uc *TransitionUseCase) currentState(ctx context.Context, id string, c *cache.LocalOrderCache) (domain.Order, bool, error) {
	if c != nil {
		if cached, ok := c.Get(id); ok {
			return cached, true, nil
		}
	}
	order, err := uc.load(ctx, id)
	return order, false, err
}

func (uc *TransitionUseCase) load(ctx context.Context, id string) (domain.Order, error) {
	order, err := uc.store.FindByID(ctx, id)
	if err != nil {
		if _, ok := errors.IsNotFoundError(err); ok {
			return domain.Order{}, errors.NewNotFoundError("order not found")
		}
		return domain.Order{}, classifyWriteError(err)
	}
	return *order, nil
}

// checkTransition resolves the rule for this move. A role that can never reach
// the target is forbidden; a legal move from a state the order has left is a
// lost race.
func checkTransition(actor domain.Actor, current domain.Order, req TransitionRequest) (domain.Transition, error) {
	rule, ok := domain.FindTransition(actor.Role, current.Status, req.To)
	if !ok {
		if !domain.RoleCanReach(actor.Role, req.To) {
			return domain.Transition{}, errors.NewForbiddenError(
				fmt.Sprintf("%s cannot move orders to %s", actor.Role, req.To))
		}
		return domain.Transition{}, errors.NewGuardFailedError(current.ID, "order no longer available")
	}

	switch rule.Guard {
	case domain.GuardCustomerOwner:
		if current.CustomerID != actor.ID {
			return domain.Transition{}, errors.NewForbiddenError("order belongs to another customer")
		}
	case domain.GuardVendorOwner, domain.GuardVendorOwnerUnassigned:
		if current.VendorID != actor.ID {
			return domain.Transition{}, errors.NewForbiddenError("order belongs to another vendor")
		}
		if rule.Guard == domain.GuardVendorOwnerUnassigned && current.HasDeliverer() {
			return domain.Transition{}, errors.NewGuardFailedError(current.ID, "order already has a deliverer")
		}
	case domain.GuardClaim:
		if current.HasDeliverer() {
			return domain.Transition{}, errors.NewGuardFailedError(current.ID, "order no longer available")
		}
	case domain.GuardDelivererOwner:
		if !current.IsDeliveredBy(actor.ID) {
			return domain.Transition{}, errors.NewForbiddenError("order is assigned to another deliverer")
		}
	}

	if rule.RequiresPayment && (req.Payment == nil || req.Payment.Method == "") {
		return domain.Transition{}, errors.NewValidationError("payment confirmation required",
			errors.ValidationDetail{Field: "payment.method", Message: "is required to complete an order"})
	}

	return rule, nil
}

func (uc *TransitionUseCase) write(ctx context.Context, id string, guard domain.StatusGuard, change domain.StatusChange) (int64, error) {
	writeCtx := ctx
	if uc.writeTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, uc.writeTimeout)
		defer cancel()
	}

	start := time.Now()
	affected, err := uc.store.UpdateStatus(writeCtx, id, guard, change)
	uc.metrics.TransitionLatency.WithLabelValues(string(change.Status)).Observe(float64(time.Since(start).Milliseconds()))
	return affected, err
}

// rollback restores the cached copy taken before the optimistic update, then
// resyncs it from the store so the cache converges on the remote state.
func (uc *TransitionUseCase) rollback(
	ctx context.Context,
	c *cache.LocalOrderCache,
	id string,
	prior domain.Order,
	hadPrior bool,
	logger *zap.Logger,
) {
	if c == nil {
		return
	}
	if hadPrior {
		c.Put(prior)
	} else {
		c.Remove(id)
	}

	fresh, err := uc.store.FindByID(ctx, id)
	if err != nil {
		if _, ok := errors.IsNotFoundError(err); ok {
			c.Remove(id)
			return
		}
		logger.Warn("resync after failed transition failed", zap.Error(err))
		return
	}
	c.Put(*fresh)
}

func classifyWriteError(err error) error {
	if _, ok := errors.IsTransientError(err); ok {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTransientError("order store timed out", err)
	}
	return errors.NewInternalError("order store failure", err)
}

func outcomeOf(err error) string {
	switch {
	case isType(err, errors.IsValidationError):
		return "invalid"
	case isType(err, errors.IsForbiddenError):
		return "forbidden"
	case isType(err, errors.IsGuardFailedError):
		return "guard_failed"
	case isType(err, errors.IsTransientError):
		return "transient"
	}
	return "error"
}

func isType[T any](err error, is func(error) (T, bool)) bool {
	_, ok := is(err)
	return ok
}

func (uc *TransitionUseCase) observe(to domain.Status, outcome string) {
	uc.metrics.Transitions.WithLabelValues(string(to), outcome).Inc()
}
