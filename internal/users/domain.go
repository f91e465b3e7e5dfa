package users

import (
	"time"

	"github.com/odyssey-bank/banking-api/internal/rbac"
)

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username  string   `json:"username" validate:"required,min=3,max=100"`
	Email     string   `json:"email" validate:"required,email,max=255"`
	Password  string   `json:"password" validate:"required,min=6"`
	Enabled   *bool    `json:"enabled"`
	RoleNames []string `json:"roleNames"`
}

// UpdateUserRequest is the body of PUT /api/users/{id}. Nil fields are left
// unchanged; a non-nil RoleNames replaces the role set.
type UpdateUserRequest struct {
	Username  *string   `json:"username" validate:"omitempty,min=3,max=100"`
	Email     *string   `json:"email" validate:"omitempty,email,max=255"`
	Password  *string   `json:"password" validate:"omitempty,min=6"`
	Enabled   *bool     `json:"enabled"`
	RoleNames *[]string `json:"roleNames"`
}

// UserResponse is the public view of a user. It never carries the password hash.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Enabled   bool      `json:"enabled"`
	RoleNames []string  `json:"roleNames"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toResponse(u rbac.User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Enabled:   u.Enabled,
		RoleNames: roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
