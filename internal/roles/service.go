package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-bank/banking-api/internal/platform/httpx"
	"github.com/odyssey-bank/banking-api/internal/rbac"
)

// ErrDuplicateRoleName indicates a role with that name already exists.
var ErrDuplicateRoleName = fmt.Errorf("role name already exists: %w", httpx.ErrDuplicate)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(rbac.Store) error) error
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	GetRole(ctx context.Context, id int64) (rbac.Role, error)
	DeleteRole(ctx context.Context, id int64) error
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, toResponse(r))
	}
	return out, nil
}

// GetRole returns a role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (RoleResponse, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return RoleResponse{}, err
	}
	return toResponse(role), nil
}

// CreateRole stores a new role. Unknown permission names are ignored.
func (s *Service) CreateRole(ctx context.Context, req CreateRoleRequest) (RoleResponse, error) {
	name := strings.TrimSpace(req.Name)
	var created rbac.Role
	err := s.repo.WithTx(ctx, func(tx rbac.Store) error {
		taken, err := tx.RoleNameExists(ctx, name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", ErrDuplicateRoleName, name)
		}
		created, err = tx.CreateRole(ctx, rbac.Role{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			Permissions: req.PermissionNames,
		})
		return err
	})
	if err != nil {
		return RoleResponse{}, err
	}
	return toResponse(created), nil
}

// UpdateRole applies a partial update.
func (s *Service) UpdateRole(ctx context.Context, id int64, req UpdateRoleRequest) (RoleResponse, error) {
	var updated rbac.Role
	err := s.repo.WithTx(ctx, func(tx rbac.Store) error {
		role, err := tx.GetRole(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name != role.Name {
				taken, err := tx.RoleNameExists(ctx, name)
				if err != nil {
					return err
				}
				if taken {
					return fmt.Errorf("%w: %q", ErrDuplicateRoleName, name)
				}
				role.Name = name
			}
		}
		if req.Description != nil {
			role.Description = strings.TrimSpace(*req.Description)
		}
		if req.PermissionNames != nil {
			role.Permissions = *req.PermissionNames
		}
		updated, err = tx.UpdateRole(ctx, role)
		return err
	})
	if err != nil {
		return RoleResponse{}, err
	}
	return toResponse(updated), nil
}

// DeleteRole removes a role by id.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}
