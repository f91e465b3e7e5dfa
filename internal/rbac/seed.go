package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-bank/banking-api/internal/shared"
)

// ChangeDetection selects how seeding decides an existing role is stale.
type ChangeDetection string

const (
	// DetectBySet rewrites a role whose permission names differ from the desired set.
	DetectBySet ChangeDetection = "set"
	// DetectBySize rewrites a role only when the permission count differs.
	DetectBySize ChangeDetection = "size"
)

// ParseChangeDetection accepts "set" or "size"; empty means set.
func ParseChangeDetection(v string) (ChangeDetection, error) {
	switch ChangeDetection(strings.ToLower(strings.TrimSpace(v))) {
	case "", DetectBySet:
		return DetectBySet, nil
	case DetectBySize:
		return DetectBySize, nil
	default:
		return "", fmt.Errorf("rbac: unknown change detection %q", v)
	}
}

// PermissionSeed is a permission ensured at bootstrap.
type PermissionSeed struct {
	Name        string
	Description string
}

// RoleSeed is a role and its desired permission names.
type RoleSeed struct {
	Name        string
	Description string
	Permissions []string
}

// DefaultPermissions lists the built-in permissions.
func DefaultPermissions() []PermissionSeed {
	return []PermissionSeed{
		{shared.PermAccountsRead, "Read bank accounts"},
		{shared.PermAccountsWrite, "Create, update, delete accounts"},
		{shared.PermUsersRead, "Read users"},
		{shared.PermUsersWrite, "Create, update, delete users"},
		{shared.PermRolesRead, "Read roles"},
		{shared.PermRolesWrite, "Create, update, delete roles"},
	}
}

// DefaultRoleSeeds lists the built-in roles.
func DefaultRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{shared.RoleAdmin, "Administrator with full access", shared.CoreScopes()},
		{shared.RoleCustomer, "Bank customer", []string{shared.PermAccountsRead}},
		{shared.RoleOperator, "Back-office operator", []string{
			shared.PermAccountsRead,
			shared.PermAccountsWrite,
			shared.PermUsersRead,
			shared.PermRolesRead,
		}},
	}
}

// SeedReport counts what a seeding run changed.
type SeedReport struct {
	PermissionsCreated int
	RolesCreated       int
	RolesUpdated       int
}

// Seeder ensures the built-in permissions and roles exist.
type Seeder struct {
	store       Store
	detection   ChangeDetection
	permissions []PermissionSeed
	roles       []RoleSeed
	logger      *slog.Logger
}

// NewSeeder constructs a Seeder with the built-in catalogue.
func NewSeeder(store Store, detection ChangeDetection, logger *slog.Logger) *Seeder {
	if detection == "" {
		detection = DetectBySet
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		store:       store,
		detection:   detection,
		permissions: DefaultPermissions(),
		roles:       DefaultRoleSeeds(),
		logger:      logger,
	}
}

// Run upserts permissions and roles by name in one transaction. It must
// complete before the server accepts traffic.
func (s *Seeder) Run(ctx context.Context) (SeedReport, error) {
	var report SeedReport
	err := s.store.WithTx(ctx, func(tx Store) error {
		report = SeedReport{}
		for _, p := range s.permissions {
			created, err := ensurePermission(ctx, tx, p)
			if err != nil {
				return err
			}
			if created {
				report.PermissionsCreated++
			}
		}
		for _, r := range s.roles {
			created, updated, err := s.ensureRole(ctx, tx, r)
			if err != nil {
				return err
			}
			if created {
				report.RolesCreated++
			}
			if updated {
				report.RolesUpdated++
			}
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, fmt.Errorf("rbac: seed: %w", err)
	}
	s.logger.Info("rbac seed complete",
		slog.Int("permissions_created", report.PermissionsCreated),
		slog.Int("roles_created", report.RolesCreated),
		slog.Int("roles_updated", report.RolesUpdated),
		slog.String("change_detection", string(s.detection)),
	)
	return report, nil
}

func ensurePermission(ctx context.Context, store SeedStore, seed PermissionSeed) (bool, error) {
	_, err := store.FindPermissionByName(ctx, seed.Name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := store.CreatePermission(ctx, Permission{Name: seed.Name, Description: seed.Description}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Seeder) ensureRole(ctx context.Context, store SeedStore, seed RoleSeed) (created, updated bool, err error) {
	existing, err := store.FindRoleByName(ctx, seed.Name)
	if errors.Is(err, ErrNotFound) {
		_, err = store.CreateRole(ctx, Role{Name: seed.Name, Description: seed.Description, Permissions: seed.Permissions})
		return err == nil, false, err
	}
	if err != nil {
		return false, false, err
	}
	if !s.stale(existing.Permissions, seed.Permissions) {
		return false, false, nil
	}
	if err := store.ReplaceRolePermissions(ctx, existing.ID, seed.Permissions); err != nil {
		return false, false, err
	}
	return false, true, nil
}

func (s *Seeder) stale(current, desired []string) bool {
	have, want := NewPermissionSet(current...), NewPermissionSet(desired...)
	if s.detection == DetectBySize {
		return have.Len() != want.Len()
	}
	return !have.Equal(want)
}
