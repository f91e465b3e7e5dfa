package rbac

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-bank/banking-api/internal/shared"
	"github.com/odyssey-bank/banking-api/internal/token"
)

const gateSecret = "gate-test-secret-that-is-long-enough-for-hmac"

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveDecision(outcome, rule string) {
	o.outcomes = append(o.outcomes, outcome)
}

type gateFixture struct {
	store    *MemoryStore
	codec    *token.Codec
	gate     *Gate
	observer *recordingObserver
	logs     *bytes.Buffer
	now      time.Time
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	store := seededStore(t)
	ctx := context.Background()
	_, err := store.CreateUser(ctx, User{Username: "alice", Email: "alice@example.com", Enabled: true, Roles: []string{shared.RoleCustomer}})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, User{Username: "mallory", Email: "m@example.com", Enabled: false, Roles: []string{shared.RoleAdmin}})
	require.NoError(t, err)

	codec, err := token.NewCodec(gateSecret, time.Hour)
	require.NoError(t, err)

	f := &gateFixture{
		store:    store,
		codec:    codec,
		observer: &recordingObserver{},
		logs:     &bytes.Buffer{},
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(f.logs, nil))
	f.gate = NewGate(codec, NewResolver(store), nil, logger,
		WithObserver(f.observer),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *gateFixture) token(t *testing.T, subject string) string {
	t.Helper()
	raw, err := f.codec.Issue(subject, f.now)
	require.NoError(t, err)
	return raw
}

func (f *gateFixture) serve(method, path, authorization string) (*httptest.ResponseRecorder, *Principal) {
	var seen *Principal
	handler := f.gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestGateForwardsAuthorizedRequest(t *testing.T) {
	f := newGateFixture(t)
	rec, principal := f.serve(http.MethodGet, "/api/accounts", "Bearer "+f.token(t, "alice"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "alice", principal.Subject)
	assert.True(t, principal.Can(shared.PermAccountsRead))
	assert.Equal(t, []string{"allow"}, f.observer.outcomes)
}

func TestGateForbidsMissingPermission(t *testing.T) {
	f := newGateFixture(t)
	rec, _ := f.serve(http.MethodPost, "/api/accounts", "Bearer "+f.token(t, "alice"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
	assert.Contains(t, f.logs.String(), "subject=alice")
}

func TestGateAnonymousPublicRoute(t *testing.T) {
	f := newGateFixture(t)
	rec, principal := f.serve(http.MethodPost, "/api/auth/login", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, principal)

	rec, _ = f.serve(http.MethodGet, "/console/health", "Basic YWxpY2U6c2VjcmV0")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGateAnonymousDefaultRouteIsUnauthorized(t *testing.T) {
	f := newGateFixture(t)
	rec, _ := f.serve(http.MethodGet, "/api/permissions", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer realm="api"`, rec.Header().Get("WWW-Authenticate"))
}

func TestGateRejectsExpiredTokenWithoutAnonymousFallback(t *testing.T) {
	f := newGateFixture(t)
	raw := f.token(t, "alice")
	f.now = f.now.Add(time.Hour)

	rec, _ := f.serve(http.MethodGet, "/api/accounts", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Even public routes reject a present but invalid token.
	rec, _ = f.serve(http.MethodPost, "/api/auth/login", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, f.logs.String(), raw)
}

func TestGateRejectsBadTokens(t *testing.T) {
	f := newGateFixture(t)
	for _, header := range []string{"Bearer", "Bearer ", "Bearer not-a-jwt", "bearer " + f.token(t, "alice") + "x"} {
		rec, _ := f.serve(http.MethodGet, "/api/accounts", header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestGateRejectsUnknownAndDisabledPrincipals(t *testing.T) {
	f := newGateFixture(t)

	rec, _ := f.serve(http.MethodGet, "/api/permissions", "Bearer "+f.token(t, "ghost"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.serve(http.MethodGet, "/api/accounts", "Bearer "+f.token(t, "mallory"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateDisabledAfterIssueStillFails(t *testing.T) {
	f := newGateFixture(t)
	raw := f.token(t, "alice")

	alice, err := f.store.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	alice.Enabled = false
	_, err = f.store.UpdateUser(context.Background(), alice)
	require.NoError(t, err)

	rec, _ := f.serve(http.MethodGet, "/api/accounts", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type brokenSource struct{}

func (brokenSource) Principal(ctx context.Context, subject string) (*Principal, error) {
	return nil, errors.New("pool exhausted")
}

func TestGateStoreFailureIsInternalError(t *testing.T) {
	f := newGateFixture(t)
	gate := NewGate(f.codec, brokenSource{}, nil, slog.New(slog.NewTextHandler(f.logs, nil)), WithClock(func() time.Time { return f.now }))

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "alice"))
	res := gate.Evaluate(req)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, "error", res.Reason())
}

func TestGateEvaluateTrace(t *testing.T) {
	f := newGateFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/42", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "alice"))
	res := f.gate.Evaluate(req)
	assert.Equal(t, []State{StateStart, StateTokenExtracted, StateTokenVerified, StatePrincipalLoaded, StateDecided, StateForwarded}, res.Trace)
	assert.True(t, res.Forwarded())

	req = httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	res = f.gate.Evaluate(req)
	assert.Equal(t, []State{StateStart, StateDecided, StateForwarded}, res.Trace)

	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	res = f.gate.Evaluate(req)
	assert.Equal(t, []State{StateStart, StateTokenExtracted, StateRejected}, res.Trace)
	assert.ErrorIs(t, res.Err, token.ErrTokenInvalid)

	req = httptest.NewRequest(http.MethodDelete, "/api/roles/1", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "alice"))
	res = f.gate.Evaluate(req)
	assert.Equal(t, StateRejected, res.Trace[len(res.Trace)-1])
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.ErrorIs(t, res.Err, ErrPermissionDenied)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		raw     string
		present bool
	}{
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer abc", "abc", true},
		{"bearer   abc ", "abc", true},
		{"Bearer", "", true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		raw, present := bearerToken(req)
		assert.Equal(t, tc.present, present, tc.header)
		assert.Equal(t, tc.raw, raw, tc.header)
	}
}
