package users_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-bank/banking-api/internal/auth"
	"github.com/odyssey-bank/banking-api/internal/rbac"
	"github.com/odyssey-bank/banking-api/internal/shared"
	"github.com/odyssey-bank/banking-api/internal/users"
	_ "github.com/odyssey-bank/banking-api/testing"
)

type fixture struct {
	store  *rbac.MemoryStore
	router chi.Router
	hasher auth.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := rbac.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := rbac.NewSeeder(store, rbac.DetectBySet, logger).Run(context.Background())
	require.NoError(t, err)

	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	r := chi.NewRouter()
	r.Route("/api/users", users.NewHandler(logger, users.NewService(store, hasher)).MountRoutes)
	return &fixture{store: store, router: r, hasher: hasher}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateAndGetUser(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/users", map[string]any{
		"username":  "olivia",
		"email":     "olivia@example.com",
		"password":  "s3cret!",
		"roleNames": []string{"OPERATOR", "UNKNOWN"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	created := decode[users.UserResponse](t, rec)
	assert.True(t, created.Enabled)
	assert.Equal(t, []string{shared.RoleOperator}, created.RoleNames)

	rec = f.do(t, http.MethodGet, "/api/users/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "olivia", decode[users.UserResponse](t, rec).Username)

	rec = f.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]users.UserResponse](t, rec), 1)
}

func TestCreateUserConflictsAndValidation(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{"username": "olivia", "email": "olivia@example.com", "password": "s3cret!", "enabled": false}
	rec := f.do(t, http.MethodPost, "/api/users", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, decode[users.UserResponse](t, rec).Enabled)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/users", body).Code)

	body["username"] = "o"
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/users", body).Code)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.store.CreateUser(ctx, rbac.User{Username: "anna", Email: "anna@example.com", PasswordHash: "old", Enabled: true, Roles: []string{shared.RoleCustomer}})
	require.NoError(t, err)
	_, err = f.store.CreateUser(ctx, rbac.User{Username: "ben", Email: "ben@example.com", PasswordHash: "x", Enabled: true})
	require.NoError(t, err)

	// Unchanged username is not a conflict with itself.
	rec := f.do(t, http.MethodPut, "/api/users/"+itoa(a.ID), map[string]any{"username": "anna", "enabled": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[users.UserResponse](t, rec).Enabled)

	rec = f.do(t, http.MethodPut, "/api/users/"+itoa(a.ID), map[string]any{"email": "ben@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/users/"+itoa(a.ID), map[string]any{"password": "n3w-pass", "roleNames": []string{"ADMIN"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{shared.RoleAdmin}, decode[users.UserResponse](t, rec).RoleNames)

	stored, err := f.store.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.NoError(t, f.hasher.Compare(stored.PasswordHash, "n3w-pass"))

	// Omitted roleNames keeps the current set; an empty list clears it.
	rec = f.do(t, http.MethodPut, "/api/users/"+itoa(a.ID), map[string]any{"enabled": true})
	assert.Equal(t, []string{shared.RoleAdmin}, decode[users.UserResponse](t, rec).RoleNames)
	rec = f.do(t, http.MethodPut, "/api/users/"+itoa(a.ID), map[string]any{"roleNames": []string{}})
	assert.Empty(t, decode[users.UserResponse](t, rec).RoleNames)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/users/999", map[string]any{}).Code)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	u, err := f.store.CreateUser(context.Background(), rbac.User{Username: "gone", Email: "gone@example.com"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/users/"+itoa(u.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/users/"+itoa(u.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/users/"+itoa(u.ID), nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/users/abc", nil).Code)
}
