package authz

import (
	"log/slog"
	"net/http"

	"github.com/paylite-technologies/payng/internal/identity"
	"github.com/paylite-technologies/payng/internal/shared"
)

// Middleware resolves the identity from the session and installs identity,
// linked students and the computed ability into the request context. It must
// run after the session middleware; until then every downstream consumer
// would see the anonymous zero-grant ability.
type Middleware struct {
	Provider *Provider
	Logger   *slog.Logger
}

// Resolve installs identity and ability into the request context.
func (m Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())

		ident := identity.Anonymous()
		var students []identity.Student
		if sess != nil {
			ident = sess.Identity()
			students = sess.Students()
		}

		rs := m.Provider.Ability(ident, students)

		ctx := identity.ContextWith(r.Context(), ident, students)
		ctx = ContextWith(ctx, rs)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require gates a route on a point ability query against a bare subject
// type. Conditioned rules cannot satisfy a type-level query, so this is the
// right gate for list endpoints whose rows are filtered afterwards.
func (m Middleware) Require(action Action, subject Subject) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs := FromContext(r.Context())
			if rs.Can(action, subject) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("ability denied",
					slog.String("action", string(action)),
					slog.String("subject", string(subject)),
					slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
