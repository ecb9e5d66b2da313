package guard

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/paylite-technologies/payng/internal/authz"
	"github.com/paylite-technologies/payng/internal/identity"
)

// Middleware applies the route table to every request. It must run after the
// identity middleware: the gate only leaves its pending state once the
// session has been resolved, and ordering is what guarantees that here.
type Middleware struct {
	Table         *Table
	SignInPath    string
	DashboardPath string
	Logger        *slog.Logger

	// Observe, when set, receives every decision outcome and the role that
	// produced it.
	Observe func(decision, role string)
}

// Guard evaluates the route table for the request path and either passes the
// request through or issues the appropriate redirect.
func (m Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := identity.FromContext(r.Context()).Role
		decision := Evaluate(m.Table, r.URL.Path, role)
		if m.Observe != nil {
			m.Observe(decision.State.String(), string(role))
		}

		switch decision.State {
		case StateAuthorized:
			next.ServeHTTP(w, r)
		case StateRedirectSignIn:
			m.redirect(w, r, m.SignInPath, "redirect", decision.Path)
		case StateRedirectDenied:
			if m.Logger != nil {
				m.Logger.Warn("route denied",
					slog.String("path", decision.Path),
					slog.String("role", string(role)))
			}
			m.redirect(w, r, m.DashboardPath, "denied", decision.Path)
		default:
			// Pending cannot occur behind the identity middleware; refuse
			// rather than render unauthorized content.
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}

func (m Middleware) redirect(w http.ResponseWriter, r *http.Request, target, param, original string) {
	u := url.URL{Path: target, RawQuery: url.Values{param: {original}}.Encode()}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// Gate is the in-page variant of the route gate: it wraps a single handler
// with either a role list or a direct ability query, and can render a
// fallback in place of redirecting for regions that should hide rather than
// navigate away when denied.
type Gate struct {
	// Allow lists the roles admitted. Empty with AnyRole unset means the
	// gate relies solely on the ability query.
	Allow   []identity.Role
	AnyRole bool

	// Action and Subject form a direct ability query, checked in addition to
	// the role list when set.
	Action  authz.Action
	Subject authz.Subject

	AllowAnonymous bool

	// SuppressRedirect renders Fallback (or 403 when nil) instead of
	// navigating.
	SuppressRedirect bool
	Fallback         http.Handler

	SignInPath    string
	DashboardPath string
}

// Admits reports whether the gate lets the given request context through.
func (g Gate) Admits(r *http.Request) bool {
	ident := identity.FromContext(r.Context())

	if !ident.Authenticated() && !g.AllowAnonymous {
		return false
	}

	// With no explicit role list the gate admits any authenticated role,
	// mirroring the table's any-role wildcard.
	if len(g.Allow) > 0 && !g.AnyRole && !ident.Role.In(g.Allow) {
		return false
	}

	if g.Action != "" {
		rs := authz.FromContext(r.Context())
		if !rs.Can(g.Action, g.Subject) {
			return false
		}
	}

	return true
}

// Wrap produces the gated handler.
func (g Gate) Wrap(next http.Handler) http.Handler {
	signIn := g.SignInPath
	if signIn == "" {
		signIn = "/login"
	}
	dashboard := g.DashboardPath
	if dashboard == "" {
		dashboard = "/dashboard"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Admits(r) {
			next.ServeHTTP(w, r)
			return
		}

		if g.SuppressRedirect {
			if g.Fallback != nil {
				g.Fallback.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		ident := identity.FromContext(r.Context())
		if !ident.Authenticated() {
			u := url.URL{Path: signIn, RawQuery: url.Values{"redirect": {r.URL.Path}}.Encode()}
			http.Redirect(w, r, u.String(), http.StatusSeeOther)
			return
		}
		u := url.URL{Path: dashboard, RawQuery: url.Values{"denied": {r.URL.Path}}.Encode()}
		http.Redirect(w, r, u.String(), http.StatusSeeOther)
	})
}
