package rbac

import "context"

// CredentialStore is the lookup contract the resolver and the request gate
// depend on. Lookups return ErrNotFound when the record is absent.
type CredentialStore interface {
	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindRoleByName(ctx context.Context, name string) (Role, error)
	FindPermissionByName(ctx context.Context, name string) (Permission, error)
}

// SeedStore adds the upsert operations used by bootstrap seeding.
type SeedStore interface {
	CredentialStore
	CreatePermission(ctx context.Context, p Permission) (Permission, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, names []string) error
}

// Store is the full persistence contract implemented by PGStore and
// MemoryStore. User and role management services consume narrow subsets.
type Store interface {
	SeedStore

	// WithTx runs fn atomically. Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error

	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	RoleNameExists(ctx context.Context, name string) (bool, error)
	UpdateRole(ctx context.Context, role Role) (Role, error)
	DeleteRole(ctx context.Context, id int64) error

	ListPermissions(ctx context.Context) ([]Permission, error)
}
