package guard

import "github.com/paylite-technologies/payng/internal/identity"

// State is the outcome of evaluating one navigation against the table.
type State int

const (
	// StatePending means the identity has not been resolved yet. The gate
	// renders a placeholder and never a denial while pending, so identity
	// resolution can not flash denied content.
	StatePending State = iota
	// StateAuthorized means the request may proceed.
	StateAuthorized
	// StateRedirectSignIn means the request is unauthenticated for a route
	// that requires a login; the original path is preserved for post-login
	// redirect.
	StateRedirectSignIn
	// StateRedirectDenied means the request is authenticated but the role is
	// not in the route's allow-list.
	StateRedirectDenied
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthorized:
		return "authorized"
	case StateRedirectSignIn:
		return "redirect-unauthenticated"
	case StateRedirectDenied:
		return "redirect-unauthorized"
	default:
		return "unknown"
	}
}

// Decision is a terminal gate outcome plus the path that produced it.
type Decision struct {
	State State
	// Path is the originally requested path, carried into the redirect query
	// string as ?redirect= or ?denied=.
	Path string
}

// Evaluate runs the transition rule for one navigation. Unmatched paths are
// authorized: unlisted routes are open by policy, and any newly protected
// route must be added to the table explicitly. This fails open and is a
// documented product decision, not an oversight to fix silently.
func Evaluate(table *Table, path string, role identity.Role) Decision {
	if table.Public(path) {
		return Decision{State: StateAuthorized, Path: path}
	}

	rule, ok := table.Match(path)
	if !ok {
		return Decision{State: StateAuthorized, Path: path}
	}

	authenticated := role.Authenticated()

	if !authenticated && !rule.AllowAnonymous {
		return Decision{State: StateRedirectSignIn, Path: path}
	}

	if rule.AnyRole {
		return Decision{State: StateAuthorized, Path: path}
	}

	if !authenticated && rule.AllowAnonymous {
		return Decision{State: StateAuthorized, Path: path}
	}

	if role.In(rule.Roles) {
		return Decision{State: StateAuthorized, Path: path}
	}

	return Decision{State: StateRedirectDenied, Path: path}
}
