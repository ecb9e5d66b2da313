package authz

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/paylite-technologies/payng/internal/identity"
)

// Provider memoizes the ruleset for the most recently seen identity and
// linked-student snapshot. Rules are always rebuilt from scratch when either
// changes; the memo is a cache over BuildRules, never a source of truth.
type Provider struct {
	mu       sync.Mutex
	lastKey  string
	lastRule *Ruleset
}

// NewProvider constructs a Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Ability returns the ruleset for the identity, recomputing only when the
// identity or its linked students differ from the previous call.
func (p *Provider) Ability(ident *identity.Identity, students []identity.Student) *Ruleset {
	key := fingerprint(ident, students)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastRule != nil && p.lastKey == key {
		return p.lastRule
	}
	rs := NewRuleset(BuildRules(ident, students))
	p.lastKey = key
	p.lastRule = rs
	return rs
}

// fingerprint derives a stable cache key from every input BuildRules reads.
func fingerprint(ident *identity.Identity, students []identity.Student) string {
	if ident == nil {
		return "anonymous"
	}
	var b strings.Builder
	b.WriteString(ident.ID)
	b.WriteByte('|')
	b.WriteString(string(ident.Role))
	b.WriteByte('|')
	b.WriteString(ident.InstitutionID)
	b.WriteByte('|')
	perms := append([]string(nil), ident.Permissions...)
	sort.Strings(perms)
	b.WriteString(strings.Join(perms, ","))
	b.WriteByte('|')
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	b.WriteString(strings.Join(ids, ","))
	return b.String()
}

type abilityContextKey struct{}

// ContextWith stores a ruleset in context.
func ContextWith(ctx context.Context, rs *Ruleset) context.Context {
	return context.WithValue(ctx, abilityContextKey{}, rs)
}

// FromContext extracts the ruleset from context, defaulting to the empty
// (zero-grant) ruleset so callers stay in the default-deny posture.
func FromContext(ctx context.Context) *Ruleset {
	rs, _ := ctx.Value(abilityContextKey{}).(*Ruleset)
	if rs == nil {
		return Empty()
	}
	return rs
}
