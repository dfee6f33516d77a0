// Package users manages the user master records consumed by the permission
// resolver and the identity middleware.
package users

import (
	"context"
	"strings"

	"github.com/ticware/opscore/internal/app/domain/user"
	"github.com/ticware/opscore/internal/app/storage"
	apperrors "github.com/ticware/opscore/internal/errors"
	"github.com/ticware/opscore/pkg/logger"
)

// Service manages user masters.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// Create registers an active user with the given role names.
func (s *Service) Create(ctx context.Context, username, email string, roles []string) (user.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return user.User{}, apperrors.Validation("username is required")
	}
	if email == "" {
		return user.User{}, apperrors.Validation("email is required")
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, apperrors.Validation("user with email %q already exists", email)
	} else if !apperrors.IsNotFound(err) {
		return user.User{}, err
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Username: username,
		Email:    email,
		Roles:    roles,
		Status:   user.StatusActive,
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).WithField("email", email).Info("user created")
	return created, nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// GetByEmail fetches a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// SetRoles replaces a user's role names.
func (s *Service) SetRoles(ctx context.Context, id string, roles []string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.Roles = roles
	return s.store.UpdateUser(ctx, u)
}

// SetStatus enables or disables a user.
func (s *Service) SetStatus(ctx context.Context, id string, status user.Status) (user.User, error) {
	if status != user.StatusActive && status != user.StatusDisabled {
		return user.User{}, apperrors.Validation("unknown user status %q", status)
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.Status = status
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).WithField("status", string(status)).Info("user status changed")
	return updated, nil
}

// BindSession records the user's single allowed session; the latest login
// wins and invalidates any earlier session id.
func (s *Service) BindSession(ctx context.Context, id, sessionID string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.SessionID = sessionID
	return s.store.UpdateUser(ctx, u)
}
