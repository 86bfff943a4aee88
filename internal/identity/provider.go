// Package identity resolves the actor behind a request from its profile.
package identity

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
}

// Session resolves its actor on first use and keeps that answer.
type Session struct {
	id       string
	profiles ProfileFinder

	once  sync.Once
	actor domain.Actor
	err   error
}

func (s *Session) CurrentActor(ctx context.Context) (domain.Actor, error) {
	s.once.Do(func() {
		profile, err := s.profiles.FindByID(ctx, s.id)
		if err != nil {
			if _, ok := errors.IsNotFoundError(err); ok {
				s.err = errors.NewForbiddenError("unknown actor")
				return
			}
			s.err = err
			return
		}
		s.actor = domain.Actor{ID: profile.ID, Role: profile.Role}
	})
	return s.actor, s.err
}

// Provider hands out one Session per actor id.
type Provider struct {
	profiles ProfileFinder
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewProvider(profiles ProfileFinder, logger *zap.Logger) *Provider {
	return &Provider{
		profiles: profiles,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

func (p *Provider) Session(actorID string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[actorID]
	if !ok {
		s = &Session{id: actorID, profiles: p.profiles}
		p.sessions[actorID] = s
	}
	return s
}

// CurrentActor resolves actorID through its session. A failed resolution is
// forgotten so the next call asks the profile store again.
func (p *Provider) CurrentActor(ctx context.Context, actorID string) (domain.Actor, error) {
	s := p.Session(actorID)
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		p.forget(actorID, s)
		p.logger.Debug("actor resolution failed", zap.String("actorId", actorID), zap.Error(err))
		return domain.Actor{}, err
	}
	return actor, nil
}

func (p *Provider) forget(actorID string, s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions[actorID] == s {
		delete(p.sessions, actorID)
	}
}
