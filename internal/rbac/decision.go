package rbac

import (
	"net/http"
	"path"
	"strings"

	"github.com/odyssey-bank/banking-api/internal/shared"
)

// Outcome is the result class of an access decision.
type Outcome int

const (
	// Allow forwards the request.
	Allow Outcome = iota
	// DenyUnauthenticated rejects a request that needs an identity.
	DenyUnauthenticated
	// DenyForbidden rejects a request whose caller lacks the required permission.
	DenyForbidden
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decision records which rule matched and what it decided.
type Decision struct {
	Outcome    Outcome
	Rule       string
	Permission string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Err returns the error class for a denial, nil when allowed.
func (d Decision) Err() error {
	switch d.Outcome {
	case DenyUnauthenticated:
		return ErrUnauthenticated
	case DenyForbidden:
		return ErrPermissionDenied
	default:
		return nil
	}
}

// Rule matches a method and Ant-style path patterns. An empty Method matches
// every method. Public rules permit without a token; otherwise Permission is
// required.
type Rule struct {
	Name       string
	Method     string
	Patterns   []string
	Permission string
	Public     bool
}

func (r Rule) matches(method, p string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	for _, pattern := range r.Patterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// DefaultRules returns the route table guarding the banking API.
func DefaultRules() []Rule {
	rules := []Rule{{
		Name:     "public",
		Patterns: []string{"/api/auth/**", "/console/**"},
		Public:   true,
	}}
	resources := []struct {
		base        string
		read, write string
	}{
		{"/api/accounts", shared.PermAccountsRead, shared.PermAccountsWrite},
		{"/api/users", shared.PermUsersRead, shared.PermUsersWrite},
		{"/api/roles", shared.PermRolesRead, shared.PermRolesWrite},
	}
	for _, res := range resources {
		name := strings.TrimPrefix(res.base, "/api/")
		rules = append(rules,
			Rule{Name: name + ".list", Method: http.MethodGet, Patterns: []string{res.base, res.base + "/**"}, Permission: res.read},
			Rule{Name: name + ".create", Method: http.MethodPost, Patterns: []string{res.base}, Permission: res.write},
			Rule{Name: name + ".update", Method: http.MethodPut, Patterns: []string{res.base + "/**"}, Permission: res.write},
			Rule{Name: name + ".delete", Method: http.MethodDelete, Patterns: []string{res.base + "/**"}, Permission: res.write},
		)
	}
	return rules
}

// Engine evaluates an ordered rule table. First match wins; requests no rule
// matches need any authenticated identity.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine over rules. A nil slice uses DefaultRules.
func NewEngine(rules []Rule) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{rules: append([]Rule(nil), rules...)}
}

// Decide returns the access decision for method and path. A nil principal is
// an anonymous caller with an empty permission set.
func (e *Engine) Decide(method, rawPath string, p *Principal) Decision {
	method = strings.ToUpper(method)
	if method == http.MethodHead {
		method = http.MethodGet
	}
	clean := NormalizePath(rawPath)
	for _, rule := range e.rules {
		if !rule.matches(method, clean) {
			continue
		}
		if rule.Public {
			return Decision{Outcome: Allow, Rule: rule.Name}
		}
		if p.Can(rule.Permission) {
			return Decision{Outcome: Allow, Rule: rule.Name, Permission: rule.Permission}
		}
		return Decision{Outcome: DenyForbidden, Rule: rule.Name, Permission: rule.Permission}
	}
	if p == nil {
		return Decision{Outcome: DenyUnauthenticated, Rule: "authenticated"}
	}
	return Decision{Outcome: Allow, Rule: "authenticated"}
}

// NormalizePath cleans dot segments, repeated and trailing slashes.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// matchPattern supports exact patterns and a trailing "/**", which matches
// the prefix itself and anything beneath it.
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	return p == pattern
}
