package service

import (
	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/order/cache"
	"tiffin/internal/order/view"
	"tiffin/internal/realtime"
)

const (
	resultApplied   = "applied"
	resultReplay    = "replay"
	resultIgnored   = "ignored"
	resultStale     = "stale"
	resultMalformed = "malformed"
)

// Reconciler folds change events into one screen's cache. Arrival order wins
// unless the cached copy carries a later UpdatedAt; replaying an event changes
// nothing.
type Reconciler struct {
	cache   *cache.LocalOrderCache
	view    view.View
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewReconciler(c *cache.LocalOrderCache, v view.View, m *metrics.Metrics, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		cache:   c,
		view:    v,
		metrics: m,
		logger:  logger,
	}
}

func (r *Reconciler) Handlers() realtime.Handlers {
	return realtime.Handlers{
		OnInsert: r.OnInsert,
		OnUpdate: r.OnUpdate,
		OnDelete: r.OnDelete,
	}
}

// OnInsert adds the order when it belongs to the view.
func (r *Reconciler) OnInsert(o domain.Order) {
	if !r.valid(realtime.EventInsert, o) {
		return
	}
	r.cache.Observe(o.ID, o.UpdatedAt)
	if !r.view.Matches(o) {
		r.observe(realtime.EventInsert, resultIgnored)
		return
	}
	r.put(realtime.EventInsert, o)
}

// OnUpdate replaces the cached copy, drops it when the order left the view, and
// adds orders that just entered it.
func (r *Reconciler) OnUpdate(o domain.Order) {
	if !r.valid(realtime.EventUpdate, o) {
		return
	}
	r.cache.Observe(o.ID, o.UpdatedAt)
	existing, cached := r.cache.Get(o.ID)
	if !cached && !r.view.Matches(o) {
		r.observe(realtime.EventUpdate, resultIgnored)
		return
	}
	// A delayed event must not roll back a copy written after it.
	if cached && existing.UpdatedAt.After(o.UpdatedAt) {
		r.observe(realtime.EventUpdate, resultStale)
		return
	}
	r.put(realtime.EventUpdate, o)
}

func (r *Reconciler) OnDelete(o domain.Order) {
	if o.ID == "" {
		r.observe(realtime.EventDelete, resultMalformed)
		return
	}
	r.cache.Observe(o.ID, o.UpdatedAt)
	if r.cache.Remove(o.ID) {
		r.observe(realtime.EventDelete, resultApplied)
		return
	}
	r.observe(realtime.EventDelete, resultIgnored)
}

func (r *Reconciler) put(t realtime.EventType, o domain.Order) {
	if r.cache.Put(o) {
		r.observe(t, resultApplied)
		return
	}
	r.observe(t, resultReplay)
}

func (r *Reconciler) valid(t realtime.EventType, o domain.Order) bool {
	if o.ID == "" || !o.Status.IsValid() {
		r.logger.Warn("ignoring malformed change event", zap.String("type", string(t)), zap.String("orderId", o.ID))
		r.observe(t, resultMalformed)
		return false
	}
	return true
}

func (r *Reconciler) observe(t realtime.EventType, result string) {
	r.metrics.RealtimeEvents.WithLabelValues(string(t), result).Inc()
}
