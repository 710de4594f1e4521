package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"tenant-registry/internal/metrics"
	"tenant-registry/internal/model"
)

// CredentialStore is the slice of the registry the credential service reads.
type CredentialStore interface {
	FindAdminByEmail(ctx context.Context, email string) (*model.AdminCredential, error)
	FindOrgByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
}

// CredentialService authenticates administrators against the registry.
type CredentialService struct {
	store  CredentialStore
	hasher PasswordHasher
	logger *slog.Logger

	// compared against when the email is unknown so both failure paths cost one hash check
	dummyHash string
}

func NewCredentialService(store CredentialStore, hasher PasswordHasher, logger *slog.Logger) (*CredentialService, error) {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &CredentialService{store: store, hasher: hasher, logger: logger, dummyHash: dummy}, nil
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate never tells the caller whether the email or the password was wrong.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	email = NormalizeEmail(email)

	admin, err := s.store.FindAdminByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		s.hasher.Verify(s.dummyHash, password)
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	if !s.hasher.Verify(admin.PasswordHash, password) {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, model.ErrInvalidCredentials
	}

	org, err := s.store.FindOrgByID(ctx, admin.OrganizationID)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("credential references missing organization",
			"admin_id", admin.ID, "organization_id", admin.OrganizationID)
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return &model.Identity{
		AdminID:          admin.ID,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		Email:            admin.Email,
	}, nil
}
