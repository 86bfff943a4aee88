package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

const ActorHeader = "X-Actor-ID"

type actorKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Middleware rejects requests without a resolvable X-Actor-ID and stores the
// actor in the request context.
func Middleware(provider *Provider, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actorID == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing "+ActorHeader+" header", logger)
				return
			}

			actor, err := provider.CurrentActor(r.Context(), actorID)
			if err != nil {
				if _, ok := errors.IsForbiddenError(err); ok {
					writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), logger)
					return
				}
				logger.Error("resolving actor", zap.String("actorId", actorID), zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "RETRYABLE", "identity provider unavailable", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Error: code, Message: message}); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
