package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paylite-technologies/payng/internal/authz"
)

func TestDenyPrecedence(t *testing.T) {
	rs := authz.NewRuleset([]authz.Rule{
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice},
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice, Inverted: true},
	})
	assert.False(t, rs.Can(authz.ActionRead, authz.SubjectInvoice), "deny wins over grant")
	assert.True(t, rs.Cannot(authz.ActionRead, authz.SubjectInvoice))
}

func TestDenyBeforeGrantStillWins(t *testing.T) {
	rs := authz.NewRuleset([]authz.Rule{
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice, Inverted: true},
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice},
	})
	assert.False(t, rs.Can(authz.ActionRead, authz.SubjectInvoice), "deny wins regardless of ordering")
}

func TestConditionedDenyOnlyAppliesWhenMatched(t *testing.T) {
	rs := authz.NewRuleset([]authz.Rule{
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice},
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice, Inverted: true,
			Conditions: authz.Conditions{"status": {Eq: "void"}}},
	})
	open := authz.Record{Subject: authz.SubjectInvoice, Fields: map[string]string{"status": "open"}}
	voided := authz.Record{Subject: authz.SubjectInvoice, Fields: map[string]string{"status": "void"}}
	assert.True(t, rs.Can(authz.ActionRead, open))
	assert.False(t, rs.Can(authz.ActionRead, voided))
}

func TestManageAndAllAreSupersets(t *testing.T) {
	manage := authz.NewRuleset([]authz.Rule{{Action: authz.ActionManage, Subject: authz.SubjectStudent}})
	assert.True(t, manage.Can(authz.ActionDelete, authz.SubjectStudent))
	assert.False(t, manage.Can(authz.ActionDelete, authz.SubjectInvoice))

	all := authz.NewRuleset([]authz.Rule{{Action: authz.ActionRead, Subject: authz.SubjectAll}})
	assert.True(t, all.Can(authz.ActionRead, authz.SubjectMerchant))
	assert.False(t, all.Can(authz.ActionUpdate, authz.SubjectMerchant))
}

func TestBareTypeQuerySkipsConditionedRules(t *testing.T) {
	rs := authz.NewRuleset([]authz.Rule{
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice,
			Conditions: authz.Conditions{"studentId": {Eq: "stu-1"}}},
	})
	// A type-level query carries no fields: a conditioned rule can never
	// grant it, and that is a defined false, not an error.
	assert.False(t, rs.Can(authz.ActionRead, authz.SubjectInvoice))

	instance := authz.Record{Subject: authz.SubjectInvoice, Fields: map[string]string{"studentId": "stu-1"}}
	assert.True(t, rs.Can(authz.ActionRead, instance))
}

func TestMissingFieldNeverSatisfiesCondition(t *testing.T) {
	rs := authz.NewRuleset([]authz.Rule{
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice,
			Conditions: authz.Conditions{"studentId": {Eq: "stu-1"}}},
	})
	malformed := authz.Record{Subject: authz.SubjectInvoice, Fields: map[string]string{"id": "inv-1"}}
	assert.False(t, rs.Can(authz.ActionRead, malformed))
}

func TestNilAndEmptyRulesets(t *testing.T) {
	assert.False(t, authz.Empty().Can(authz.ActionRead, authz.SubjectInvoice))

	var nilSet *authz.Ruleset
	assert.False(t, nilSet.Can(authz.ActionRead, authz.SubjectInvoice))
	assert.True(t, nilSet.Cannot(authz.ActionRead, authz.SubjectInvoice))
}

func TestCanWithMergesAdHocConditions(t *testing.T) {
	rs := authz.NewRuleset([]authz.Rule{
		{Action: authz.ActionRead, Subject: authz.SubjectFeeSchedule,
			Conditions: authz.Conditions{"studentId": {In: []string{"stu-1", "stu-2"}}}},
	})

	// The bare subject fails; injecting the route parameter succeeds.
	assert.False(t, rs.Can(authz.ActionRead, authz.SubjectFeeSchedule))
	assert.True(t, rs.CanWith(authz.ActionRead, authz.SubjectFeeSchedule, map[string]string{"studentId": "stu-2"}))
	assert.False(t, rs.CanWith(authz.ActionRead, authz.SubjectFeeSchedule, map[string]string{"studentId": "stu-3"}))

	// Ad hoc fields shadow the instance's own.
	record := authz.Record{Subject: authz.SubjectFeeSchedule, Fields: map[string]string{"studentId": "stu-3"}}
	assert.True(t, rs.CanWith(authz.ActionRead, record, map[string]string{"studentId": "stu-1"}))
}

func TestFilterPreservesOrder(t *testing.T) {
	rs := authz.NewRuleset([]authz.Rule{
		{Action: authz.ActionRead, Subject: authz.SubjectInvoice,
			Conditions: authz.Conditions{"studentId": {In: []string{"stu-1", "stu-3"}}}},
	})
	items := []authz.Record{
		{Subject: authz.SubjectInvoice, Fields: map[string]string{"id": "inv-1", "studentId": "stu-1"}},
		{Subject: authz.SubjectInvoice, Fields: map[string]string{"id": "inv-2", "studentId": "stu-2"}},
		{Subject: authz.SubjectInvoice, Fields: map[string]string{"id": "inv-3", "studentId": "stu-3"}},
	}
	kept := authz.Filter(rs, authz.ActionRead, items)
	assert.Len(t, kept, 2)
	assert.Equal(t, "inv-1", kept[0].Fields["id"])
	assert.Equal(t, "inv-3", kept[1].Fields["id"])

	assert.Empty(t, authz.Filter(authz.Empty(), authz.ActionRead, items))
}

func TestMatcherZeroValueNeverMatches(t *testing.T) {
	var m authz.Matcher
	assert.False(t, m.Matches(""))
	assert.False(t, m.Matches("anything"))
}
