package rbac

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-bank/banking-api/internal/shared"
)

func principalWith(perms ...string) *Principal {
	return &Principal{Subject: "tester", Permissions: NewPermissionSet(perms...)}
}

func TestDecideAccountRead(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Decide(http.MethodGet, "/api/accounts/42", principalWith(shared.PermAccountsRead))
	assert.True(t, d.Allowed())
	assert.Equal(t, shared.PermAccountsRead, d.Permission)

	d = engine.Decide(http.MethodGet, "/api/accounts/42", principalWith())
	assert.Equal(t, DenyForbidden, d.Outcome)
	assert.ErrorIs(t, d.Err(), ErrPermissionDenied)

	d = engine.Decide(http.MethodGet, "/api/accounts/42", principalWith(shared.PermAccountsWrite))
	assert.Equal(t, DenyForbidden, d.Outcome)
}

func TestDecideRuleTable(t *testing.T) {
	engine := NewEngine(nil)
	cases := []struct {
		method, path, perm string
	}{
		{http.MethodGet, "/api/accounts", shared.PermAccountsRead},
		{http.MethodGet, "/api/accounts/1/history", shared.PermAccountsRead},
		{http.MethodPost, "/api/accounts", shared.PermAccountsWrite},
		{http.MethodPut, "/api/accounts/1", shared.PermAccountsWrite},
		{http.MethodDelete, "/api/accounts/1", shared.PermAccountsWrite},
		{http.MethodGet, "/api/users", shared.PermUsersRead},
		{http.MethodGet, "/api/users/7", shared.PermUsersRead},
		{http.MethodPost, "/api/users", shared.PermUsersWrite},
		{http.MethodPut, "/api/users/7", shared.PermUsersWrite},
		{http.MethodDelete, "/api/users/7", shared.PermUsersWrite},
		{http.MethodGet, "/api/roles", shared.PermRolesRead},
		{http.MethodGet, "/api/roles/3", shared.PermRolesRead},
		{http.MethodPost, "/api/roles", shared.PermRolesWrite},
		{http.MethodPut, "/api/roles/3", shared.PermRolesWrite},
		{http.MethodDelete, "/api/roles/3", shared.PermRolesWrite},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			d := engine.Decide(tc.method, tc.path, principalWith(tc.perm))
			require.True(t, d.Allowed())
			assert.Equal(t, tc.perm, d.Permission)

			var others []string
			for _, p := range shared.CoreScopes() {
				if p != tc.perm {
					others = append(others, p)
				}
			}
			d = engine.Decide(tc.method, tc.path, principalWith(others...))
			assert.Equal(t, DenyForbidden, d.Outcome)
		})
	}
}

func TestDecidePublicRoutes(t *testing.T) {
	engine := NewEngine(nil)
	for _, p := range []string{"/api/auth/login", "/api/auth/register", "/api/auth", "/console/health"} {
		for _, principal := range []*Principal{nil, principalWith(), principalWith(shared.CoreScopes()...)} {
			d := engine.Decide(http.MethodPost, p, principal)
			assert.True(t, d.Allowed(), p)
			assert.Equal(t, "public", d.Rule)
		}
	}
}

func TestDecideDefaultRule(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Decide(http.MethodGet, "/api/permissions", nil)
	assert.Equal(t, DenyUnauthenticated, d.Outcome)
	assert.ErrorIs(t, d.Err(), ErrUnauthenticated)

	d = engine.Decide(http.MethodGet, "/api/permissions", principalWith())
	assert.True(t, d.Allowed())
	assert.Equal(t, "authenticated", d.Rule)

	// POST on a resource item has no table entry.
	d = engine.Decide(http.MethodPost, "/api/accounts/1", principalWith())
	assert.True(t, d.Allowed())
}

func TestDecideAnonymousOnGuardedRouteIsForbidden(t *testing.T) {
	d := NewEngine(nil).Decide(http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, DenyForbidden, d.Outcome)
}

func TestDecideNormalizesInput(t *testing.T) {
	engine := NewEngine(nil)
	reader := principalWith(shared.PermAccountsRead)

	assert.True(t, engine.Decide("head", "/api/accounts", reader).Allowed())
	assert.True(t, engine.Decide("get", "/api/accounts/", reader).Allowed())
	assert.True(t, engine.Decide(http.MethodGet, "//api//accounts/./9", reader).Allowed())

	// Dot segments cannot escape into a public prefix.
	d := engine.Decide(http.MethodGet, "/api/auth/../accounts", nil)
	assert.Equal(t, DenyForbidden, d.Outcome)
}

func TestDecidePrefixBoundary(t *testing.T) {
	d := NewEngine(nil).Decide(http.MethodGet, "/api/accountsx", principalWith())
	assert.Equal(t, "authenticated", d.Rule)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("/api/auth/**", "/api/auth"))
	assert.True(t, matchPattern("/api/auth/**", "/api/auth/login"))
	assert.True(t, matchPattern("/api/auth/**", "/api/auth/a/b"))
	assert.False(t, matchPattern("/api/auth/**", "/api/authx"))
	assert.True(t, matchPattern("/api/users", "/api/users"))
	assert.False(t, matchPattern("/api/users", "/api/users/1"))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", NormalizePath(""))
	assert.Equal(t, "/api/users", NormalizePath("api/users/"))
	assert.Equal(t, "/api/roles", NormalizePath("/api/users/../roles"))
}

func TestCustomRulesFirstMatchWins(t *testing.T) {
	engine := NewEngine([]Rule{
		{Name: "open", Method: http.MethodGet, Patterns: []string{"/api/accounts/**"}, Public: true},
		{Name: "closed", Patterns: []string{"/api/accounts/**"}, Permission: "NOPE"},
	})
	assert.Equal(t, "open", engine.Decide(http.MethodGet, "/api/accounts", nil).Rule)
	assert.Equal(t, DenyForbidden, engine.Decide(http.MethodPut, "/api/accounts/1", principalWith()).Outcome)
}
