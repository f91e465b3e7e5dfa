package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-bank/banking-api/internal/auth"
	"github.com/odyssey-bank/banking-api/internal/rbac"
	"github.com/odyssey-bank/banking-api/internal/shared"
)

// Duplicate errors shared with registration.
var (
	ErrDuplicateUsername = shared.ErrDuplicateUsername
	ErrDuplicateEmail    = shared.ErrDuplicateEmail
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(rbac.Store) error) error
	ListUsers(ctx context.Context) ([]rbac.User, error)
	GetUser(ctx context.Context, id int64) (rbac.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	hasher auth.Hasher
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, hasher auth.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]UserResponse, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	return out, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (UserResponse, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return UserResponse{}, err
	}
	return toResponse(u), nil
}

// CreateUser stores a new user. Unknown role names are ignored.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (UserResponse, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return UserResponse{}, fmt.Errorf("users: hash password: %w", err)
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	user := rbac.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Enabled:      enabled,
		Roles:        req.RoleNames,
	}

	var created rbac.User
	err = s.repo.WithTx(ctx, func(tx rbac.Store) error {
		if err := ensureUnique(ctx, tx, user.Username, user.Email); err != nil {
			return err
		}
		created, err = tx.CreateUser(ctx, user)
		return err
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toResponse(created), nil
}

// UpdateUser applies a partial update. Uniqueness is re-checked only for
// changed fields.
func (s *Service) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (UserResponse, error) {
	var hash string
	if req.Password != nil && *req.Password != "" {
		h, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return UserResponse{}, fmt.Errorf("users: hash password: %w", err)
		}
		hash = h
	}

	var updated rbac.User
	err := s.repo.WithTx(ctx, func(tx rbac.Store) error {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		var newName, newEmail string
		if req.Username != nil && strings.TrimSpace(*req.Username) != user.Username {
			newName = strings.TrimSpace(*req.Username)
			user.Username = newName
		}
		if req.Email != nil && strings.TrimSpace(*req.Email) != user.Email {
			newEmail = strings.TrimSpace(*req.Email)
			user.Email = newEmail
		}
		if err := ensureUnique(ctx, tx, newName, newEmail); err != nil {
			return err
		}
		if hash != "" {
			user.PasswordHash = hash
		}
		if req.Enabled != nil {
			user.Enabled = *req.Enabled
		}
		if req.RoleNames != nil {
			user.Roles = *req.RoleNames
		}
		updated, err = tx.UpdateUser(ctx, user)
		return err
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toResponse(updated), nil
}

// DeleteUser removes a user by id.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

// ensureUnique checks non-empty username and email against the store.
func ensureUnique(ctx context.Context, store rbac.Store, username, email string) error {
	if username != "" {
		taken, err := store.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", ErrDuplicateUsername, username)
		}
	}
	if email != "" {
		taken, err := store.EmailExists(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", ErrDuplicateEmail, email)
		}
	}
	return nil
}
