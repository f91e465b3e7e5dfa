package rbac

import (
	"slices"
	"time"
)

// Permission represents an atomic capability. Names are globally unique and
// never change after bootstrap.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// Role is a named bundle of permissions. It owns permission names, not
// permission records.
type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is a stored account. Roles holds role names; the effective permission
// set is derived from them and never stored.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Enabled      bool
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PermissionSet is an unordered set of permission names.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names, dropping duplicates and blanks.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set. A nil set contains nothing.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of permissions.
func (s PermissionSet) Len() int {
	return len(s)
}

// Names returns the permissions in sorted order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Equal reports whether both sets hold the same names.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for name := range s {
		if !other.Has(name) {
			return false
		}
	}
	return true
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID      int64
	Subject     string
	Roles       []string
	Permissions PermissionSet
}

// Can reports whether the principal holds permission. Nil principals hold nothing.
func (p *Principal) Can(permission string) bool {
	if p == nil {
		return false
	}
	return p.Permissions.Has(permission)
}
