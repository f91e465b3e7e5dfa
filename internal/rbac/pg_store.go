package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-bank/banking-api/internal/platform/db"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PGStore provides PostgreSQL backed persistence for users, roles and permissions.
type PGStore struct {
	db   dbtx
	pool *pgxpool.Pool
	inTx bool
}

// NewPGStore constructs a store over pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool, pool: pool}
}

// WithTx runs fn inside a RepeatableRead transaction.
func (s *PGStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PGStore{db: tx, pool: s.pool, inTx: true})
	})
}

// Ping checks database connectivity.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const userSelect = `
	SELECT u.id, u.username, u.email, u.password_hash, u.enabled, u.created_at, u.updated_at,
		COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id`

const roleSelect = `
	SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
		COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}')
	FROM roles r
	LEFT JOIN role_permissions rp ON rp.role_id = r.id
	LEFT JOIN permissions p ON p.id = rp.permission_id`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Enabled, &u.CreatedAt, &u.UpdatedAt, &u.Roles)
	return u, err
}

func scanRole(row pgx.Row) (Role, error) {
	var r Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt, &r.Permissions)
	return r, err
}

func mapErr(err error, what string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: %s", ErrDuplicate, what)
	default:
		return fmt.Errorf("rbac: %s: %w", what, err)
	}
}

// FindUserByUsername returns the user with the given username.
func (s *PGStore) FindUserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, userSelect+` WHERE u.username = $1 GROUP BY u.id`, username))
	if err != nil {
		return User{}, mapErr(err, fmt.Sprintf("user %q", username))
	}
	return u, nil
}

// FindRoleByName returns the role with the given name.
func (s *PGStore) FindRoleByName(ctx context.Context, name string) (Role, error) {
	r, err := scanRole(s.db.QueryRow(ctx, roleSelect+` WHERE r.name = $1 GROUP BY r.id`, name))
	if err != nil {
		return Role{}, mapErr(err, fmt.Sprintf("role %q", name))
	}
	return r, nil
}

// FindPermissionByName returns the permission with the given name.
func (s *PGStore) FindPermissionByName(ctx context.Context, name string) (Permission, error) {
	var p Permission
	err := s.db.QueryRow(ctx, `SELECT id, name, description FROM permissions WHERE name = $1`, name).
		Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		return Permission{}, mapErr(err, fmt.Sprintf("permission %q", name))
	}
	return p, nil
}

// CreatePermission inserts a permission.
func (s *PGStore) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO permissions (name, description) VALUES ($1, $2) RETURNING id`,
		p.Name, p.Description,
	).Scan(&p.ID)
	if err != nil {
		return Permission{}, mapErr(err, fmt.Sprintf("permission %q", p.Name))
	}
	return p, nil
}

// ListPermissions returns all permissions ordered by name.
func (s *PGStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, mapErr(err, "list permissions")
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreateRole inserts a role and attaches the named permissions that exist.
func (s *PGStore) CreateRole(ctx context.Context, role Role) (Role, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id`,
		role.Name, role.Description,
	).Scan(&id)
	if err != nil {
		return Role{}, mapErr(err, fmt.Sprintf("role %q", role.Name))
	}
	if err := s.attachPermissions(ctx, id, role.Permissions); err != nil {
		return Role{}, err
	}
	return s.GetRole(ctx, id)
}

// ReplaceRolePermissions swaps the role's permission set.
func (s *PGStore) ReplaceRolePermissions(ctx context.Context, roleID int64, names []string) error {
	tag, err := s.db.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID)
	if err != nil {
		return mapErr(err, fmt.Sprintf("role %d", roleID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role %d", ErrNotFound, roleID)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return mapErr(err, fmt.Sprintf("role %d", roleID))
	}
	return s.attachPermissions(ctx, roleID, names)
}

func (s *PGStore) attachPermissions(ctx context.Context, roleID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, id FROM permissions WHERE name = ANY($2)
		ON CONFLICT DO NOTHING`, roleID, names)
	if err != nil {
		return mapErr(err, fmt.Sprintf("role %d permissions", roleID))
	}
	return nil
}

// ListRoles returns all roles ordered by id.
func (s *PGStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.db.Query(ctx, roleSelect+` GROUP BY r.id ORDER BY r.id`)
	if err != nil {
		return nil, mapErr(err, "list roles")
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by id.
func (s *PGStore) GetRole(ctx context.Context, id int64) (Role, error) {
	r, err := scanRole(s.db.QueryRow(ctx, roleSelect+` WHERE r.id = $1 GROUP BY r.id`, id))
	if err != nil {
		return Role{}, mapErr(err, fmt.Sprintf("role %d", id))
	}
	return r, nil
}

// RoleNameExists reports whether a role with name exists.
func (s *PGStore) RoleNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, mapErr(err, "role exists")
	}
	return exists, nil
}

// UpdateRole overwrites name, description and permission set.
func (s *PGStore) UpdateRole(ctx context.Context, role Role) (Role, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`,
		role.ID, role.Name, role.Description,
	)
	if err != nil {
		return Role{}, mapErr(err, fmt.Sprintf("role %q", role.Name))
	}
	if tag.RowsAffected() == 0 {
		return Role{}, fmt.Errorf("%w: role %d", ErrNotFound, role.ID)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
		return Role{}, mapErr(err, fmt.Sprintf("role %d", role.ID))
	}
	if err := s.attachPermissions(ctx, role.ID, role.Permissions); err != nil {
		return Role{}, err
	}
	return s.GetRole(ctx, role.ID)
}

// DeleteRole removes a role. Assignments cascade.
func (s *PGStore) DeleteRole(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("role %d", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role %d", ErrNotFound, id)
	}
	return nil
}

// ListUsers returns all users ordered by id.
func (s *PGStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, userSelect+` GROUP BY u.id ORDER BY u.id`)
	if err != nil {
		return nil, mapErr(err, "list users")
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser fetches a user by id.
func (s *PGStore) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, userSelect+` WHERE u.id = $1 GROUP BY u.id`, id))
	if err != nil {
		return User{}, mapErr(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

// UsernameExists reports whether username is taken.
func (s *PGStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, mapErr(err, "username exists")
	}
	return exists, nil
}

// EmailExists reports whether email is taken.
func (s *PGStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, mapErr(err, "email exists")
	}
	return exists, nil
}

// CreateUser inserts a user and attaches the named roles that exist.
func (s *PGStore) CreateUser(ctx context.Context, user User) (User, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, enabled)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.Enabled,
	).Scan(&id)
	if err != nil {
		return User{}, mapErr(err, fmt.Sprintf("user %q", user.Username))
	}
	if err := s.attachRoles(ctx, id, user.Roles); err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, id)
}

// UpdateUser overwrites every mutable field, including the role set.
func (s *PGStore) UpdateUser(ctx context.Context, user User) (User, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET username = $2, email = $3, password_hash = $4, enabled = $5, updated_at = NOW()
		WHERE id = $1`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Enabled,
	)
	if err != nil {
		return User{}, mapErr(err, fmt.Sprintf("user %q", user.Username))
	}
	if tag.RowsAffected() == 0 {
		return User{}, fmt.Errorf("%w: user %d", ErrNotFound, user.ID)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, user.ID); err != nil {
		return User{}, mapErr(err, fmt.Sprintf("user %d", user.ID))
	}
	if err := s.attachRoles(ctx, user.ID, user.Roles); err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *PGStore) attachRoles(ctx context.Context, userID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = ANY($2)
		ON CONFLICT DO NOTHING`, userID, names)
	if err != nil {
		return mapErr(err, fmt.Sprintf("user %d roles", userID))
	}
	return nil
}

// DeleteUser removes a user.
func (s *PGStore) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("user %d", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return nil
}

var _ Store = (*PGStore)(nil)
