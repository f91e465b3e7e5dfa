package roles

import "github.com/odyssey-bank/banking-api/internal/rbac"

// CreateRoleRequest is the body of POST /api/roles.
type CreateRoleRequest struct {
	Name            string   `json:"name" validate:"required,min=1,max=50"`
	Description     string   `json:"description" validate:"max=255"`
	PermissionNames []string `json:"permissionNames"`
}

// UpdateRoleRequest is the body of PUT /api/roles/{id}. A non-nil
// PermissionNames replaces the permission set atomically.
type UpdateRoleRequest struct {
	Name            *string   `json:"name" validate:"omitempty,min=1,max=50"`
	Description     *string   `json:"description" validate:"omitempty,max=255"`
	PermissionNames *[]string `json:"permissionNames"`
}

// RoleResponse is the public view of a role.
type RoleResponse struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	PermissionNames []string `json:"permissionNames"`
}

func toResponse(r rbac.Role) RoleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return RoleResponse{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		PermissionNames: perms,
	}
}
