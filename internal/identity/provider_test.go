package identity

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type mockProfileFinder struct {
	mu           sync.Mutex
	calls        int
	FindByIDFunc func(ctx context.Context, id string) (*domain.Profile, error)
}

func (m *mockProfileFinder) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.FindByIDFunc(ctx, id)
}

func profiles(known ...domain.Profile) *mockProfileFinder {
	return &mockProfileFinder{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Profile, error) {
			for _, p := range known {
				if p.ID == id {
					out := p
					return &out, nil
				}
			}
			return nil, errors.NewNotFoundError("profile not found")
		},
	}
}

func TestSession_ResolvesOnce(t *testing.T) {
	finder := profiles(domain.Profile{ID: "d-1", Role: domain.RoleDeliverer})
	provider := NewProvider(finder, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor, err := provider.CurrentActor(context.Background(), "d-1")
			assert.NoError(t, err)
			assert.Equal(t, domain.RoleDeliverer, actor.Role)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, finder.calls)
	assert.Same(t, provider.Session("d-1"), provider.Session("d-1"))
}

func TestProvider_UnknownActorIsForbidden(t *testing.T) {
	provider := NewProvider(profiles(), zap.NewNop())

	_, err := provider.CurrentActor(context.Background(), "ghost")

	_, ok := errors.IsForbiddenError(err)
	assert.True(t, ok)
}

func TestProvider_FailedResolutionIsRetried(t *testing.T) {
	fail := true
	finder := &mockProfileFinder{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Profile, error) {
			if fail {
				return nil, stderrors.New("connection refused")
			}
			return &domain.Profile{ID: id, Role: domain.RoleVendor}, nil
		},
	}
	provider := NewProvider(finder, zap.NewNop())

	_, err := provider.CurrentActor(context.Background(), "v-1")
	require.Error(t, err)

	fail = false
	actor, err := provider.CurrentActor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleVendor, actor.Role)
	assert.Equal(t, 2, finder.calls)
}

func TestMiddleware(t *testing.T) {
	provider := NewProvider(profiles(domain.Profile{ID: "c-1", Role: domain.RoleCustomer}), zap.NewNop())

	var seen domain.Actor
	handler := Middleware(provider, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"known actor", "c-1", http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"unknown actor", "nobody", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/views/active", nil)
			if tt.header != "" {
				req.Header.Set(ActorHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, domain.Actor{ID: "c-1", Role: domain.RoleCustomer}, seen)
}

func TestMiddleware_StoreFailureIsRetryable(t *testing.T) {
	finder := &mockProfileFinder{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Profile, error) {
			return nil, stderrors.New("i/o timeout")
		},
	}
	handler := Middleware(NewProvider(finder, zap.NewNop()), zap.NewNop())(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/earnings", nil)
	req.Header.Set(ActorHeader, "v-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "RETRYABLE")
}
