package rbac

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used for development and tests.
// Transactions are serialized and run against a private copy that replaces
// the committed data only when fn succeeds. Writes outside a transaction
// queue behind any running transaction.
type MemoryStore struct {
	memoryOps
	txMu sync.Mutex
	mu   sync.RWMutex
	data *memoryData
}

// memoryTx is the Store handed to WithTx callbacks.
type memoryTx struct {
	memoryOps
}

// memoryOps implements the record operations over an access strategy.
type memoryOps struct {
	read  func(func(*memoryData) error) error
	write func(func(*memoryData) error) error
	now   func() time.Time
}

type memoryData struct {
	nextID      int64
	permissions map[int64]Permission
	roles       map[int64]Role
	users       map[int64]User
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		data: &memoryData{
			permissions: make(map[int64]Permission),
			roles:       make(map[int64]Role),
			users:       make(map[int64]User),
		},
	}
	s.memoryOps = memoryOps{
		read:  s.readCommitted,
		write: s.writeCommitted,
		now:   func() time.Time { return time.Now().UTC() },
	}
	return s
}

func (s *MemoryStore) readCommitted(fn func(*memoryData) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *MemoryStore) writeCommitted(fn func(*memoryData) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// WithTx runs fn against a copy of the store and commits the copy if fn
// succeeds. Readers see only committed data.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	tx := &memoryTx{memoryOps{read: work.apply, write: work.apply, now: s.now}}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// WithTx joins the running transaction.
func (t *memoryTx) WithTx(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t)
}

// Ping always succeeds.
func (t *memoryTx) Ping(ctx context.Context) error {
	return nil
}

func (d *memoryData) apply(fn func(*memoryData) error) error {
	return fn(d)
}

func (d *memoryData) clone() *memoryData {
	out := &memoryData{
		nextID:      d.nextID,
		permissions: maps.Clone(d.permissions),
		roles:       make(map[int64]Role, len(d.roles)),
		users:       make(map[int64]User, len(d.users)),
	}
	for id, r := range d.roles {
		out.roles[id] = cloneRole(r)
	}
	for id, u := range d.users {
		out.users[id] = cloneUser(u)
	}
	return out
}

func cloneRole(r Role) Role {
	r.Permissions = slices.Clone(r.Permissions)
	return r
}

func cloneUser(u User) User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

func (d *memoryData) allocID() int64 {
	d.nextID++
	return d.nextID
}

// FindUserByUsername returns the user with the given username.
func (o memoryOps) FindUserByUsername(ctx context.Context, username string) (User, error) {
	var out User
	err := o.read(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Username == username {
				out = cloneUser(u)
				return nil
			}
		}
		return fmt.Errorf("%w: user %q", ErrNotFound, username)
	})
	return out, err
}

// FindRoleByName returns the role with the given name.
func (o memoryOps) FindRoleByName(ctx context.Context, name string) (Role, error) {
	var out Role
	err := o.read(func(d *memoryData) error {
		r, ok := d.roleByName(name)
		if !ok {
			return fmt.Errorf("%w: role %q", ErrNotFound, name)
		}
		out = cloneRole(r)
		return nil
	})
	return out, err
}

// FindPermissionByName returns the permission with the given name.
func (o memoryOps) FindPermissionByName(ctx context.Context, name string) (Permission, error) {
	var out Permission
	err := o.read(func(d *memoryData) error {
		for _, p := range d.permissions {
			if p.Name == name {
				out = p
				return nil
			}
		}
		return fmt.Errorf("%w: permission %q", ErrNotFound, name)
	})
	return out, err
}

// CreatePermission inserts a permission with a unique name.
func (o memoryOps) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	err := o.write(func(d *memoryData) error {
		for _, existing := range d.permissions {
			if existing.Name == p.Name {
				return fmt.Errorf("%w: permission %q", ErrDuplicate, p.Name)
			}
		}
		p.ID = d.allocID()
		d.permissions[p.ID] = p
		return nil
	})
	if err != nil {
		return Permission{}, err
	}
	return p, nil
}

// ListPermissions returns all permissions ordered by name.
func (o memoryOps) ListPermissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	err := o.read(func(d *memoryData) error {
		perms = slices.Collect(maps.Values(d.permissions))
		return nil
	})
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms, err
}

// CreateRole inserts a role. Unknown permission names are dropped.
func (o memoryOps) CreateRole(ctx context.Context, role Role) (Role, error) {
	err := o.write(func(d *memoryData) error {
		if _, ok := d.roleByName(role.Name); ok {
			return fmt.Errorf("%w: role %q", ErrDuplicate, role.Name)
		}
		now := o.now()
		role.ID = d.allocID()
		role.Permissions = d.knownPermissions(role.Permissions)
		role.CreatedAt, role.UpdatedAt = now, now
		d.roles[role.ID] = cloneRole(role)
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// ReplaceRolePermissions swaps the role's permission set.
func (o memoryOps) ReplaceRolePermissions(ctx context.Context, roleID int64, names []string) error {
	return o.write(func(d *memoryData) error {
		role, ok := d.roles[roleID]
		if !ok {
			return fmt.Errorf("%w: role %d", ErrNotFound, roleID)
		}
		role.Permissions = d.knownPermissions(names)
		role.UpdatedAt = o.now()
		d.roles[roleID] = role
		return nil
	})
}

// ListRoles returns all roles ordered by id.
func (o memoryOps) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := o.read(func(d *memoryData) error {
		roles = make([]Role, 0, len(d.roles))
		for _, r := range d.roles {
			roles = append(roles, cloneRole(r))
		}
		return nil
	})
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, err
}

// GetRole fetches a role by id.
func (o memoryOps) GetRole(ctx context.Context, id int64) (Role, error) {
	var out Role
	err := o.read(func(d *memoryData) error {
		r, ok := d.roles[id]
		if !ok {
			return fmt.Errorf("%w: role %d", ErrNotFound, id)
		}
		out = cloneRole(r)
		return nil
	})
	return out, err
}

// RoleNameExists reports whether a role with name exists.
func (o memoryOps) RoleNameExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := o.read(func(d *memoryData) error {
		_, ok = d.roleByName(name)
		return nil
	})
	return ok, err
}

// UpdateRole overwrites name, description and permission set.
func (o memoryOps) UpdateRole(ctx context.Context, role Role) (Role, error) {
	err := o.write(func(d *memoryData) error {
		existing, ok := d.roles[role.ID]
		if !ok {
			return fmt.Errorf("%w: role %d", ErrNotFound, role.ID)
		}
		if other, ok := d.roleByName(role.Name); ok && other.ID != role.ID {
			return fmt.Errorf("%w: role %q", ErrDuplicate, role.Name)
		}
		if existing.Name != role.Name {
			d.renameRoleForUsers(existing.Name, role.Name)
		}
		role.Permissions = d.knownPermissions(role.Permissions)
		role.CreatedAt = existing.CreatedAt
		role.UpdatedAt = o.now()
		d.roles[role.ID] = cloneRole(role)
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role and its user assignments.
func (o memoryOps) DeleteRole(ctx context.Context, id int64) error {
	return o.write(func(d *memoryData) error {
		role, ok := d.roles[id]
		if !ok {
			return fmt.Errorf("%w: role %d", ErrNotFound, id)
		}
		delete(d.roles, id)
		for uid, u := range d.users {
			u.Roles = slices.DeleteFunc(slices.Clone(u.Roles), func(n string) bool { return n == role.Name })
			d.users[uid] = u
		}
		return nil
	})
}

// ListUsers returns all users ordered by id.
func (o memoryOps) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := o.read(func(d *memoryData) error {
		users = make([]User, 0, len(d.users))
		for _, u := range d.users {
			users = append(users, cloneUser(u))
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, err
}

// GetUser fetches a user by id.
func (o memoryOps) GetUser(ctx context.Context, id int64) (User, error) {
	var out User
	err := o.read(func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

// UsernameExists reports whether username is taken.
func (o memoryOps) UsernameExists(ctx context.Context, username string) (bool, error) {
	var found bool
	err := o.read(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Username == username {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

// EmailExists reports whether email is taken.
func (o memoryOps) EmailExists(ctx context.Context, email string) (bool, error) {
	var found bool
	err := o.read(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Email == email {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

// CreateUser inserts a user. Unknown role names are dropped.
func (o memoryOps) CreateUser(ctx context.Context, user User) (User, error) {
	err := o.write(func(d *memoryData) error {
		if err := d.checkUserUnique(user); err != nil {
			return err
		}
		now := o.now()
		user.ID = d.allocID()
		user.Roles = d.knownRoles(user.Roles)
		user.CreatedAt, user.UpdatedAt = now, now
		d.users[user.ID] = cloneUser(user)
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateUser overwrites every mutable field, including the role set.
func (o memoryOps) UpdateUser(ctx context.Context, user User) (User, error) {
	err := o.write(func(d *memoryData) error {
		existing, ok := d.users[user.ID]
		if !ok {
			return fmt.Errorf("%w: user %d", ErrNotFound, user.ID)
		}
		if err := d.checkUserUnique(user); err != nil {
			return err
		}
		user.Roles = d.knownRoles(user.Roles)
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = o.now()
		d.users[user.ID] = cloneUser(user)
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// DeleteUser removes a user.
func (o memoryOps) DeleteUser(ctx context.Context, id int64) error {
	return o.write(func(d *memoryData) error {
		if _, ok := d.users[id]; !ok {
			return fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		delete(d.users, id)
		return nil
	})
}

func (d *memoryData) roleByName(name string) (Role, bool) {
	for _, r := range d.roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

func (d *memoryData) checkUserUnique(user User) error {
	for _, u := range d.users {
		if u.ID == user.ID {
			continue
		}
		if u.Username == user.Username {
			return fmt.Errorf("%w: username %q", ErrDuplicate, user.Username)
		}
		if u.Email == user.Email {
			return fmt.Errorf("%w: email %q", ErrDuplicate, user.Email)
		}
	}
	return nil
}

func (d *memoryData) knownPermissions(names []string) []string {
	known := make(map[string]struct{}, len(d.permissions))
	for _, p := range d.permissions {
		known[p.Name] = struct{}{}
	}
	return filterKnown(names, known)
}

func (d *memoryData) knownRoles(names []string) []string {
	known := make(map[string]struct{}, len(d.roles))
	for _, r := range d.roles {
		known[r.Name] = struct{}{}
	}
	return filterKnown(names, known)
}

func (d *memoryData) renameRoleForUsers(from, to string) {
	for id, u := range d.users {
		roles := slices.Clone(u.Roles)
		for i, n := range roles {
			if n == from {
				roles[i] = to
			}
		}
		u.Roles = roles
		d.users[id] = u
	}
}

// filterKnown keeps names present in known, deduplicated and sorted.
func filterKnown(names []string, known map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := known[n]; !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*memoryTx)(nil)
)
