package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-bank/banking-api/internal/platform/httpx"
)

// TokenVerifier checks a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(raw string, now time.Time) (string, error)
}

// PrincipalSource resolves a verified subject into an enabled principal.
type PrincipalSource interface {
	Principal(ctx context.Context, subject string) (*Principal, error)
}

// DecisionObserver receives one call per gated request.
type DecisionObserver interface {
	ObserveDecision(outcome, rule string)
}

// State is a step of the per-request gate pipeline.
type State int

const (
	StateStart State = iota
	StateTokenExtracted
	StateTokenVerified
	StatePrincipalLoaded
	StateDecided
	StateForwarded
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateTokenExtracted:
		return "token_extracted"
	case StateTokenVerified:
		return "token_verified"
	case StatePrincipalLoaded:
		return "principal_loaded"
	case StateDecided:
		return "decided"
	case StateForwarded:
		return "forwarded"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is the outcome of running the gate over one request.
type Result struct {
	Trace     []State
	Principal *Principal
	Decision  Decision
	Status    int
	Err       error
}

// Forwarded reports whether the request may reach the handler.
func (r Result) Forwarded() bool {
	return len(r.Trace) > 0 && r.Trace[len(r.Trace)-1] == StateForwarded
}

// Reason is the short label used in logs and metrics.
func (r Result) Reason() string {
	switch {
	case r.Forwarded():
		return Allow.String()
	case r.Status == http.StatusUnauthorized:
		return DenyUnauthenticated.String()
	case r.Status == http.StatusForbidden:
		return DenyForbidden.String()
	default:
		return "error"
	}
}

// Gate authenticates and authorizes every request before it reaches business
// handlers. A present but invalid token is always rejected, never downgraded
// to anonymous.
type Gate struct {
	verifier TokenVerifier
	source   PrincipalSource
	engine   *Engine
	logger   *slog.Logger
	observer DecisionObserver
	now      func() time.Time
}

// GateOption customises a Gate.
type GateOption func(*Gate)

// WithObserver reports every decision to o.
func WithObserver(o DecisionObserver) GateOption {
	return func(g *Gate) { g.observer = o }
}

// WithClock overrides the time source used for token verification.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate wires the pipeline collaborators.
func NewGate(verifier TokenVerifier, source PrincipalSource, engine *Engine, logger *slog.Logger, opts ...GateOption) *Gate {
	if engine == nil {
		engine = NewEngine(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		verifier: verifier,
		source:   source,
		engine:   engine,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate runs the pipeline for r without writing a response.
func (g *Gate) Evaluate(r *http.Request) Result {
	res := Result{Trace: []State{StateStart}}

	raw, present := bearerToken(r)
	if present {
		res.Trace = append(res.Trace, StateTokenExtracted)
		subject, err := g.verifier.Verify(raw, g.now())
		if err != nil {
			return res.reject(http.StatusUnauthorized, err)
		}
		res.Trace = append(res.Trace, StateTokenVerified)

		principal, err := g.source.Principal(r.Context(), subject)
		if err != nil {
			if errors.Is(err, httpx.ErrUnauthorized) {
				return res.reject(http.StatusUnauthorized, err)
			}
			return res.reject(http.StatusInternalServerError, err)
		}
		res.Principal = principal
		res.Trace = append(res.Trace, StatePrincipalLoaded)
	}

	res.Decision = g.engine.Decide(r.Method, r.URL.Path, res.Principal)
	res.Trace = append(res.Trace, StateDecided)
	switch res.Decision.Outcome {
	case Allow:
		res.Status = http.StatusOK
		res.Trace = append(res.Trace, StateForwarded)
		return res
	case DenyUnauthenticated:
		return res.reject(http.StatusUnauthorized, res.Decision.Err())
	default:
		return res.reject(http.StatusForbidden, res.Decision.Err())
	}
}

func (r Result) reject(status int, err error) Result {
	r.Status = status
	r.Err = err
	r.Trace = append(r.Trace, StateRejected)
	return r
}

// Middleware returns the gate as chi-compatible middleware.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Evaluate(r)
		if g.observer != nil {
			g.observer.ObserveDecision(res.Reason(), res.Decision.Rule)
		}
		if res.Forwarded() {
			ctx := r.Context()
			if res.Principal != nil {
				ctx = ContextWithPrincipal(ctx, res.Principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		g.reject(w, r, res)
	})
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, res Result) {
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("reason", res.Reason()),
		slog.Any("error", res.Err),
	}
	if res.Principal != nil {
		attrs = append(attrs, slog.String("subject", res.Principal.Subject))
	}
	if res.Decision.Rule != "" {
		attrs = append(attrs, slog.String("rule", res.Decision.Rule))
	}

	switch res.Status {
	case http.StatusUnauthorized:
		g.logger.Warn("request rejected", attrs...)
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case http.StatusForbidden:
		g.logger.Info("request rejected", attrs...)
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "access denied")
	default:
		g.logger.Error("request gate failure", attrs...)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// bearerToken extracts the credential from an "Authorization: Bearer" header.
// A missing header or another scheme means anonymous; "Bearer" with an empty
// credential counts as a present, invalid token.
func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, credential, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(credential), true
}
