package roles_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-bank/banking-api/internal/rbac"
	"github.com/odyssey-bank/banking-api/internal/roles"
	"github.com/odyssey-bank/banking-api/internal/shared"
	_ "github.com/odyssey-bank/banking-api/testing"
)

func newRouter(t *testing.T) (chi.Router, *rbac.MemoryStore) {
	t.Helper()
	store := rbac.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := rbac.NewSeeder(store, rbac.DetectBySet, logger).Run(context.Background())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api/roles", roles.NewHandler(logger, roles.NewService(store)).MountRoutes)
	return r, store
}

func call(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, roles.RoleResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	var out roles.RoleResponse
	if rec.Code == http.StatusOK || rec.Code == http.StatusCreated {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestListSeededRoles(t *testing.T) {
	r, _ := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roles", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []roles.RoleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, shared.RoleAdmin, list[0].Name)
	assert.Len(t, list[0].PermissionNames, 6)
}

func TestRoleLifecycle(t *testing.T) {
	r, store := newRouter(t)

	rec, created := call(t, r, http.MethodPost, "/api/roles", map[string]any{
		"name":            "AUDITOR",
		"description":     "Read-only auditor",
		"permissionNames": []string{"USERS_READ", "ROLES_READ", "NOT_A_PERMISSION"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"ROLES_READ", "USERS_READ"}, created.PermissionNames)
	path := "/api/roles/" + strconv.FormatInt(created.ID, 10)

	rec, _ = call(t, r, http.MethodPost, "/api/roles", map[string]any{"name": "AUDITOR"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Description only: permission set untouched.
	rec, updated := call(t, r, http.MethodPut, path, map[string]any{"description": "Auditor"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Auditor", updated.Description)
	assert.Equal(t, []string{"ROLES_READ", "USERS_READ"}, updated.PermissionNames)

	rec, updated = call(t, r, http.MethodPut, path, map[string]any{"permissionNames": []string{"ACCOUNTS_READ"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ACCOUNTS_READ"}, updated.PermissionNames)

	rec, _ = call(t, r, http.MethodPut, path, map[string]any{"name": shared.RoleAdmin})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, updated = call(t, r, http.MethodPut, path, map[string]any{"name": "AUDITOR"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AUDITOR", updated.Name)

	rec, got := call(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AUDITOR", got.Name)

	rec, _ = call(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = call(t, r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := store.FindRoleByName(context.Background(), "AUDITOR")
	assert.ErrorIs(t, err, rbac.ErrNotFound)
}

func TestCreateRoleValidation(t *testing.T) {
	r, _ := newRouter(t)
	rec, _ := call(t, r, http.MethodPost, "/api/roles", map[string]any{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
