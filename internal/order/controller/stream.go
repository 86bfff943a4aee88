package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tiffin/internal/dto"
	apperrors "tiffin/internal/errors"
	"tiffin/internal/identity"
	"tiffin/internal/order/service"
	"tiffin/internal/order/view"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StreamView mounts a screen for the caller and sends its order list as
// server-sent events until the client goes away. The first event carries the
// screen id used by ScreenTransition.
func (c *OrderController) StreamView(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	actor, _ := identity.ActorFrom(r.Context())
	name := view.Name(chi.URLParam(r, "view"))
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("view", string(name)))

	v, err := view.For(actor, name)
	if err != nil {
		c.writeValidationError(w, err.Error(), apperrors.ValidationDetail{Field: "view", Message: "unknown view for this role"})
		return
	}

	rc := http.NewResponseController(w)
	screen := c.newScreen(actor, v)
	if err := screen.Mount(r.Context()); err != nil {
		c.handleUseCaseError(w, traceID, "", err, logger)
		return
	}
	c.screens.Add(screen)
	defer c.screens.Remove(screen.ID)

	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	logger = logger.With(zap.String("screenId", screen.ID))
	logger.Info("screen stream opened")
	defer logger.Info("screen stream closed")

	if err := c.writeSnapshot(w, rc, screen); err != nil {
		return
	}

	heartbeat := time.NewTicker(c.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-screen.Changes():
			if !ok {
				return
			}
			if err := c.writeSnapshot(w, rc, screen); err != nil {
				logger.Debug("writing snapshot failed", zap.Error(err))
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (c *OrderController) writeSnapshot(w http.ResponseWriter, rc *http.ResponseController, screen *service.Screen) error {
	data, err := json.Marshal(dto.ScreenSnapshot{
		ScreenID: screen.ID,
		View:     string(screen.View.Name),
		Orders:   dto.FromOrders(screen.Orders(), screen.Actor),
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}
