// Package guard implements the request-time route gate: a static table maps
// URL path patterns to the roles allowed through, and a small state machine
// decides between rendering, a sign-in redirect, and a denied redirect.
package guard

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/paylite-technologies/payng/internal/identity"
)

// RouteRule maps a path pattern to the roles allowed through it. A pattern
// may contain one dynamic segment written as [id], which matches the pattern
// base exactly or any subpath under it.
type RouteRule struct {
	Pattern        string          `yaml:"pattern"`
	Roles          []identity.Role `yaml:"roles,omitempty"`
	AnyRole        bool            `yaml:"any_role,omitempty"`
	AllowAnonymous bool            `yaml:"allow_anonymous,omitempty"`
}

// Table is the static route access configuration. Rules are matched by
// longest pattern first, so a more specific prefix always wins.
type Table struct {
	public map[string]struct{}
	rules  []RouteRule
}

// NewTable builds a table from public (always-open, exact match) paths and
// route rules. Rules are sorted longest-pattern-first; input order between
// equal lengths is preserved.
func NewTable(public []string, rules []RouteRule) *Table {
	publicSet := make(map[string]struct{}, len(public))
	for _, p := range public {
		publicSet[p] = struct{}{}
	}
	sorted := make([]RouteRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Pattern) > len(sorted[j].Pattern)
	})
	return &Table{public: publicSet, rules: sorted}
}

// Public reports whether the path is in the always-open list.
func (t *Table) Public(path string) bool {
	_, ok := t.public[path]
	return ok
}

// Match returns the first (most specific) rule covering the path. The
// second return is false when no rule matches; unmatched paths are open by
// policy, so every protected route must be enumerated explicitly.
func (t *Table) Match(path string) (RouteRule, bool) {
	for _, rule := range t.rules {
		if patternMatches(rule.Pattern, path) {
			return rule, true
		}
	}
	return RouteRule{}, false
}

func patternMatches(pattern, path string) bool {
	if i := strings.Index(pattern, "/[id]"); i >= 0 {
		base := pattern[:i]
		return path == base || strings.HasPrefix(path, base+"/")
	}
	return path == pattern || strings.HasPrefix(path, pattern+"/")
}

type tableFile struct {
	Public []string    `yaml:"public"`
	Routes []RouteRule `yaml:"routes"`
}

// LoadTable reads a route table from a YAML file. The table is data, not
// code: adding a protected route never touches evaluator logic.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("guard: read table: %w", err)
	}
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("guard: parse table: %w", err)
	}
	for i, rule := range file.Routes {
		if strings.TrimSpace(rule.Pattern) == "" {
			return nil, fmt.Errorf("guard: route %d: empty pattern", i)
		}
		for _, role := range rule.Roles {
			if !role.Valid() {
				return nil, fmt.Errorf("guard: route %q: unknown role %q", rule.Pattern, role)
			}
		}
	}
	return NewTable(file.Public, file.Routes), nil
}

// DefaultTable returns the built-in route access configuration.
func DefaultTable() *Table {
	public := []string{"/", "/login", "/register", "/forgot-password", "/reset-password"}

	adminOnly := []identity.Role{identity.RoleInstitutionAdmin, identity.RoleSuperAdmin}
	invoiceRoles := []identity.Role{
		identity.RoleParent, identity.RoleGuardian, identity.RoleStudent,
		identity.RoleInstitutionAdmin, identity.RoleSuperAdmin,
		identity.RoleSupport, identity.RoleFinance,
	}

	rules := []RouteRule{
		{Pattern: "/dashboard", AnyRole: true},
		{Pattern: "/profile", AnyRole: true, AllowAnonymous: true},
		{Pattern: "/notifications", AnyRole: true},
		{Pattern: "/settings", AnyRole: true},

		{Pattern: "/invoices/[id]", Roles: invoiceRoles},
		{Pattern: "/invoices", Roles: invoiceRoles},
		{Pattern: "/payments", Roles: []identity.Role{
			identity.RoleParent, identity.RoleGuardian, identity.RoleInstitutionAdmin,
			identity.RoleSuperAdmin, identity.RoleFinance, identity.RoleMerchant,
		}},
		{Pattern: "/payment-history", Roles: invoiceRoles},
		{Pattern: "/fees", Roles: []identity.Role{
			identity.RoleStudent, identity.RoleParent, identity.RoleGuardian,
		}},

		{Pattern: "/admin/dashboard", Roles: identity.AdminRoles},
		{Pattern: "/admin/reports/global", Roles: []identity.Role{identity.RoleSuperAdmin, identity.RoleFinance}},
		{Pattern: "/admin/reports", Roles: identity.AdminRoles},
		{Pattern: "/admin/reconciliation", Roles: []identity.Role{
			identity.RoleFinance, identity.RoleMerchant, identity.RoleInstitutionAdmin, identity.RoleSuperAdmin,
		}},
		{Pattern: "/admin/fee-structure", Roles: adminOnly},
		{Pattern: "/admin/fee-schedules", Roles: adminOnly},
		{Pattern: "/admin/fee-assignments", Roles: adminOnly},
		{Pattern: "/admin/students", Roles: adminOnly},
		{Pattern: "/admin/institutions/[id]/edit", Roles: []identity.Role{identity.RoleSuperAdmin}},
		{Pattern: "/admin/institutions", Roles: []identity.Role{identity.RoleSuperAdmin}},
		{Pattern: "/admin/admins", Roles: []identity.Role{identity.RoleSuperAdmin}},
		{Pattern: "/admin/support/tickets", Roles: []identity.Role{identity.RoleSupport, identity.RoleSuperAdmin}},
		{Pattern: "/admin/finance/transactions", Roles: []identity.Role{identity.RoleFinance, identity.RoleSuperAdmin}},
		{Pattern: "/admin/merchants/onboarding", Roles: []identity.Role{identity.RoleMerchant, identity.RoleSuperAdmin}},
	}

	return NewTable(public, rules)
}
