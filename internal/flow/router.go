package flow

import (
	"fmt"
	"path"
	"strings"
)

// CatchAll matches every path.
const CatchAll = "/*"

// Route maps a path pattern to a step. A pattern is either a literal path or
// a prefix ending in "/*".
type Route struct {
	Pattern string
	Step    Step
}

// DefaultRoutes is the route table of the onboarding flow. Order matters:
// the first match wins and the catch-all sends everything else to signup.
func DefaultRoutes() []Route {
	return []Route{
		{Pattern: "/otp", Step: StepOTP},
		{Pattern: "/kyc", Step: StepKYC},
		{Pattern: "/success", Step: StepSuccess},
		{Pattern: CatchAll, Step: StepSignup},
	}
}

// Router resolves paths against a static route table.
type Router struct {
	routes []Route
}

// NewRouter validates routes and builds a router. The table must contain a
// catch-all so every path resolves.
func NewRouter(routes []Route) (*Router, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("route table is empty")
	}
	hasCatchAll := false
	for _, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route pattern %q must start with /", r.Pattern)
		}
		if r.Step == "" {
			return nil, fmt.Errorf("route %q has no step", r.Pattern)
		}
		if r.Pattern == CatchAll {
			hasCatchAll = true
		}
	}
	if !hasCatchAll {
		return nil, fmt.Errorf("route table needs a %s catch-all", CatchAll)
	}
	table := make([]Route, len(routes))
	copy(table, routes)
	return &Router{routes: table}, nil
}

// Resolve returns the step for p.
func (r *Router) Resolve(p string) Step {
	p = normalizePath(p)
	for _, route := range r.routes {
		if match(route.Pattern, p) {
			return route.Step
		}
	}
	// unreachable with a validated table
	return StepSignup
}

// PathFor returns the canonical path of step: its first literal pattern,
// or "/" when the step is only reachable through a wildcard.
func (r *Router) PathFor(step Step) string {
	for _, route := range r.routes {
		if route.Step == step && !strings.HasSuffix(route.Pattern, "/*") {
			return route.Pattern
		}
	}
	for _, route := range r.routes {
		if route.Step == step {
			if prefix := strings.TrimSuffix(route.Pattern, "/*"); prefix != "" {
				return prefix
			}
		}
	}
	return "/"
}

func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func match(pattern, p string) bool {
	if pattern == CatchAll {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.EqualFold(p, prefix) || hasPrefixFold(p, prefix+"/")
	}
	return strings.EqualFold(path.Clean(pattern), p)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
