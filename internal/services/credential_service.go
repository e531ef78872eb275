package services

import (
	"context"
	"log/slog"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/internal/security"
	api "eduaudit/pkg/contracts/api/v1"
)

// CredentialService manages the stored portal login.
type CredentialService struct {
	store  *security.CredentialStore
	logger *slog.Logger
}

// NewCredentialService wraps store.
func NewCredentialService(store *security.CredentialStore, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		store:  store,
		logger: infrastructure.WithComponent(logger, "credential_service"),
	}
}

// Save replaces the stored credentials.
func (s *CredentialService) Save(ctx context.Context, req api.CredentialsRequest) error {
	if err := s.store.Save(ctx, security.Credentials{Login: req.Login, Password: req.Password}); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "credentials saved", slog.String("login", req.Login))
	return nil
}

// Clear removes the stored credentials.
func (s *CredentialService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "credentials cleared")
	return nil
}

// Status reports whether credentials are stored and for which login.
func (s *CredentialService) Status(ctx context.Context) (api.CredentialsResponse, error) {
	if !s.store.Exists() {
		return api.CredentialsResponse{}, nil
	}
	creds, err := s.store.Load(ctx)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeConfig) {
			return api.CredentialsResponse{}, nil
		}
		return api.CredentialsResponse{}, err
	}
	return api.CredentialsResponse{Stored: true, Login: creds.Login}, nil
}
