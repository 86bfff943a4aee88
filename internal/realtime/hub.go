// Package realtime fans order change notifications out to scoped subscriptions.
//
// The hub is the in-process end of every change feed: local writes, postgres
// LISTEN/NOTIFY and the kafka relay all publish into it, and screens subscribe
// to it with the owner scope of their view.
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tiffin/internal/domain"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one committed change to an orders row. Record is the row after
// the change (nil for deletes), Old the row before it when known.
type ChangeEvent struct {
	Type        EventType
	Record      *domain.Order
	Old         *domain.Order
	Source      string
	CommittedAt time.Time
}

// OrderID returns the id of the affected row, or "" for a malformed event.
func (e ChangeEvent) OrderID() string {
	if e.Record != nil {
		return e.Record.ID
	}
	if e.Old != nil {
		return e.Old.ID
	}
	return ""
}

type Handlers struct {
	OnInsert func(domain.Order)
	OnUpdate func(domain.Order)
	OnDelete func(domain.Order)
}

type Hub struct {
	nodeID string
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]*Subscription

	onCountChange func(int)
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		nodeID: uuid.NewString(),
		logger: logger,
		subs:   make(map[string]*Subscription),
	}
}

// NodeID identifies this process on shared feeds.
func (h *Hub) NodeID() string {
	return h.nodeID
}

// OnSubscriptionCount registers a callback fired with the number of open
// subscriptions whenever it changes.
func (h *Hub) OnSubscriptionCount(fn func(int)) {
	h.mu.Lock()
	h.onCountChange = fn
	h.mu.Unlock()
}

// Subscribe registers handlers for changes whose row, before or after the
// change, falls inside scope.
func (h *Hub) Subscribe(scope domain.Filter, handlers Handlers) *Subscription {
	return h.add(&Subscription{
		ID:       uuid.NewString(),
		hub:      h,
		scope:    scope,
		handlers: handlers,
	})
}

func (h *Hub) add(sub *Subscription) *Subscription {
	h.mu.Lock()
	h.subs[sub.ID] = sub
	count := len(h.subs)
	notify := h.onCountChange
	h.mu.Unlock()

	if notify != nil {
		notify(count)
	}
	h.logger.Debug("subscription opened", zap.String("subscriptionId", sub.ID))
	return sub
}

// SubscribeAll registers fn for every event, unscoped and with the event
// envelope intact. Feeds that relay changes elsewhere use it.
func (h *Hub) SubscribeAll(fn func(ChangeEvent)) *Subscription {
	return h.add(&Subscription{
		ID:  uuid.NewString(),
		hub: h,
		raw: fn,
	})
}

// Publish delivers ev to every matching subscription, in the caller's goroutine
// and in subscription order. Events without a source are stamped with this node.
func (h *Hub) Publish(ev ChangeEvent) {
	if ev.Source == "" {
		ev.Source = h.nodeID
	}
	if ev.CommittedAt.IsZero() {
		ev.CommittedAt = time.Now().UTC()
	}

	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.wants(ev) {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(ev)
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	count := len(h.subs)
	notify := h.onCountChange
	h.mu.Unlock()

	if notify != nil {
		notify(count)
	}
	h.logger.Debug("subscription closed", zap.String("subscriptionId", id))
}

// Subscription is a live handle on the hub. Once Close returns no handler of
// this subscription runs again.
type Subscription struct {
	ID string

	hub      *Hub
	scope    domain.Filter
	handlers Handlers
	raw      func(ChangeEvent)

	mu     sync.Mutex
	closed bool
}

func (s *Subscription) wants(ev ChangeEvent) bool {
	if ev.Record != nil && s.scope.Matches(*ev.Record) {
		return true
	}
	return ev.Old != nil && s.scope.Matches(*ev.Old)
}

func (s *Subscription) deliver(ev ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.raw != nil {
		s.raw(ev)
		return
	}

	switch ev.Type {
	case EventInsert:
		if s.handlers.OnInsert != nil && ev.Record != nil {
			s.handlers.OnInsert(ev.Record.Clone())
		}
	case EventUpdate:
		if s.handlers.OnUpdate != nil && ev.Record != nil {
			s.handlers.OnUpdate(ev.Record.Clone())
		}
	case EventDelete:
		if s.handlers.OnDelete == nil {
			return
		}
		switch {
		case ev.Old != nil:
			s.handlers.OnDelete(ev.Old.Clone())
		case ev.Record != nil:
			s.handlers.OnDelete(ev.Record.Clone())
		}
	}
}

// Close is idempotent. It must not be called from inside one of this
// subscription's own handlers.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.remove(s.ID)
}

func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
