package rbac

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Resolver loads users from the credential store and flattens their roles
// into an effective permission set.
type Resolver struct {
	store CredentialStore
	group singleflight.Group
}

// NewResolver constructs a Resolver over store.
func NewResolver(store CredentialStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks the user up by subject. Disabled users resolve successfully;
// callers decide how to treat them.
func (r *Resolver) Resolve(ctx context.Context, subject string) (User, error) {
	user, err := r.store.FindUserByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, fmt.Errorf("%w: %q", ErrPrincipalNotFound, subject)
		}
		return User{}, err
	}
	return user, nil
}

// EffectivePermissions returns the union of permissions across the user's
// roles. Roles missing from the store contribute nothing.
func (r *Resolver) EffectivePermissions(ctx context.Context, user User) (PermissionSet, error) {
	roles := make([]Role, 0, len(user.Roles))
	for _, name := range user.Roles {
		role, err := r.store.FindRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		roles = append(roles, role)
	}
	return Flatten(roles), nil
}

// Flatten unions the permission names of roles. No roles yields an empty set.
func Flatten(roles []Role) PermissionSet {
	set := make(PermissionSet)
	for _, role := range roles {
		for _, name := range role.Permissions {
			if name != "" {
				set[name] = struct{}{}
			}
		}
	}
	return set
}

// Principal resolves subject into an enabled principal. Concurrent lookups
// for the same subject share one store round trip.
func (r *Resolver) Principal(ctx context.Context, subject string) (*Principal, error) {
	ch := r.group.DoChan(subject, func() (interface{}, error) {
		return r.load(context.WithoutCancel(ctx), subject)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		p := res.Val.(Principal)
		return &p, nil
	}
}

func (r *Resolver) load(ctx context.Context, subject string) (Principal, error) {
	user, err := r.Resolve(ctx, subject)
	if err != nil {
		return Principal{}, err
	}
	if !user.Enabled {
		return Principal{}, fmt.Errorf("%w: %q", ErrPrincipalDisabled, subject)
	}
	perms, err := r.EffectivePermissions(ctx, user)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:      user.ID,
		Subject:     user.Username,
		Roles:       append([]string(nil), user.Roles...),
		Permissions: perms,
	}, nil
}
