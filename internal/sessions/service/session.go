package service

import (
	"context"
	"errors"

	sessionserrors "roomly/internal/sessions/errors"
	"roomly/internal/sessions/store"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
)

type SessionService interface {
	Start(ctx context.Context) (model.ClaimSession, error)
	Get(ctx context.Context, token string) (model.ClaimSession, error)
	Approve(ctx context.Context, token, userID string) (model.ClaimSession, error)
}

type sessionService struct {
	store *store.Store
	cfg   *config.Config
}

func NewSessionService(sessionStore *store.Store, cfg *config.Config) SessionService {
	return &sessionService{
		store: sessionStore,
		cfg:   cfg,
	}
}

func (s *sessionService) Start(ctx context.Context) (model.ClaimSession, error) {
	session := s.store.Start()

	s.cfg.Log.Info("Pairing session started",
		"token", session.Token,
		"ttl", session.TTL,
	)
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, token string) (model.ClaimSession, error) {
	if token == "" {
		return model.ClaimSession{}, apperrors.InvalidInput("Session token cannot be empty")
	}

	session, err := s.store.Get(token)
	if err != nil {
		if errors.Is(err, sessionserrors.ErrNotFound) {
			return model.ClaimSession{}, apperrors.NotFound("Session")
		}
		return model.ClaimSession{}, apperrors.Internal("Failed to read session", err)
	}

	return session, nil
}

func (s *sessionService) Approve(ctx context.Context, token, userID string) (model.ClaimSession, error) {
	if token == "" {
		return model.ClaimSession{}, apperrors.InvalidInput("Session token cannot be empty")
	}
	if userID == "" {
		return model.ClaimSession{}, apperrors.InvalidInput("User ID cannot be empty")
	}

	session, err := s.store.Approve(token, userID)
	if err != nil {
		switch {
		case errors.Is(err, sessionserrors.ErrNotFound):
			return model.ClaimSession{}, apperrors.NotFound("Session")
		case errors.Is(err, sessionserrors.ErrExpired):
			return model.ClaimSession{}, apperrors.Expired("Session expired before approval")
		case errors.Is(err, sessionserrors.ErrAlreadyResolved):
			return model.ClaimSession{}, apperrors.Conflict("Session already resolved")
		default:
			return model.ClaimSession{}, apperrors.Internal("Failed to approve session", err)
		}
	}

	s.cfg.Log.Info("Pairing session approved",
		"token", session.Token,
		"user_id", userID,
	)
	return session, nil
}
