package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylite-technologies/payng/internal/identity"
)

func TestEvaluateScenarios(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name string
		path string
		role identity.Role
		want State
	}{
		{"anonymous to dashboard", "/dashboard", identity.RoleAnonymous, StateRedirectSignIn},
		{"student to admin institutions", "/admin/institutions", identity.RoleStudent, StateRedirectDenied},
		{"parent to invoice detail", "/invoices/123", identity.RoleParent, StateAuthorized},
		{"unlisted path is open", "/some/new/page", identity.RoleStudent, StateAuthorized},
		{"unlisted path open even anonymous", "/some/new/page", identity.RoleAnonymous, StateAuthorized},
		{"public route", "/login", identity.RoleAnonymous, StateAuthorized},
		{"any-role route admits merchant", "/settings", identity.RoleMerchant, StateAuthorized},
		{"super admin to admin admins", "/admin/admins", identity.RoleSuperAdmin, StateAuthorized},
		{"finance to global reports", "/admin/reports/global", identity.RoleFinance, StateAuthorized},
		{"support to global reports denied", "/admin/reports/global", identity.RoleSupport, StateRedirectDenied},
		{"support to reports allowed", "/admin/reports", identity.RoleSupport, StateAuthorized},
		{"merchant to onboarding", "/admin/merchants/onboarding", identity.RoleMerchant, StateAuthorized},
		{"anonymous profile allowed", "/profile", identity.RoleAnonymous, StateAuthorized},
		{"student to payments denied", "/payments", identity.RoleStudent, StateRedirectDenied},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := Evaluate(table, tc.path, tc.role)
			assert.Equal(t, tc.want, decision.State)
			assert.Equal(t, tc.path, decision.Path, "original path preserved for redirect targets")
		})
	}
}

func TestMatchPrefersLongestPattern(t *testing.T) {
	table := NewTable(nil, []RouteRule{
		{Pattern: "/admin", Roles: []identity.Role{identity.RoleSuperAdmin}},
		{Pattern: "/admin/reports", Roles: []identity.Role{identity.RoleFinance}},
	})

	rule, ok := table.Match("/admin/reports/2026")
	require.True(t, ok)
	assert.Equal(t, "/admin/reports", rule.Pattern)

	rule, ok = table.Match("/admin/users")
	require.True(t, ok)
	assert.Equal(t, "/admin", rule.Pattern)

	_, ok = table.Match("/adminx")
	assert.False(t, ok, "prefix match requires a segment boundary")
}

func TestDynamicSegmentPattern(t *testing.T) {
	table := NewTable(nil, []RouteRule{
		{Pattern: "/invoices/[id]", Roles: []identity.Role{identity.RoleParent}},
	})

	for _, path := range []string{"/invoices", "/invoices/123", "/invoices/123/receipt"} {
		_, ok := table.Match(path)
		assert.True(t, ok, "pattern should cover %s", path)
	}
	_, ok := table.Match("/payments/123")
	assert.False(t, ok)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "authorized", StateAuthorized.String())
	assert.Equal(t, "redirect-unauthenticated", StateRedirectSignIn.String())
	assert.Equal(t, "redirect-unauthorized", StateRedirectDenied.String())
}
