package authz

import (
	"github.com/paylite-technologies/payng/internal/identity"
)

// Held permission flags layered on top of role based rules. These are an
// independent axis: a flag grants a narrow capability regardless of which
// role block applied.
const (
	PermManageStudents  = "manage_students"
	PermApproveFees     = "approve_fees"
	PermViewFinance     = "view_finance"
	PermManageAdmins    = "manage_admins"
	PermSupportOverride = "support_override"
)

// adminManagedRoles are the roles a manage_admins holder may administer.
var adminManagedRoles = []string{
	string(identity.RoleInstitutionAdmin),
	string(identity.RoleSupport),
	string(identity.RoleFinance),
	string(identity.RoleMerchant),
}

// BuildRules computes the full permission set for an identity and its linked
// students. It is pure and deterministic: the same inputs always produce the
// same ordered rule list, and later blocks only ever add grants (retraction
// is the evaluator's deny precedence, not ordering).
func BuildRules(ident *identity.Identity, students []identity.Student) []Rule {
	if ident == nil || !ident.Role.Valid() || ident.Role == identity.RoleAnonymous {
		return nil
	}

	if ident.Role == identity.RoleSuperAdmin {
		return []Rule{{Action: ActionManage, Subject: SubjectAll}}
	}

	b := builder{}

	switch ident.Role {
	case identity.RoleParent, identity.RoleGuardian:
		b.guardianBlock(linkedStudentIDs(students))
	case identity.RoleStudent:
		b.studentBlock(ident.ID)
	case identity.RoleInstitutionAdmin:
		// A tenant admin without a tenant gets nothing from this block and
		// falls through to the self-profile block below.
		if ident.InstitutionID != "" {
			b.institutionAdminBlock(ident.InstitutionID)
		}
	case identity.RoleSupport:
		b.supportBlock(ident.HasPermission(PermSupportOverride))
	case identity.RoleFinance:
		b.financeBlock()
	case identity.RoleMerchant:
		b.merchantBlock()
	}

	b.selfProfileBlock(ident.ID)
	b.heldPermissionBlock(ident)

	return b.rules
}

type builder struct {
	rules []Rule
}

func (b *builder) can(action Action, subject Subject, conds Conditions) {
	b.rules = append(b.rules, Rule{Action: action, Subject: subject, Conditions: conds})
}

func (b *builder) cannot(action Action, subject Subject, conds Conditions) {
	b.rules = append(b.rules, Rule{Action: action, Subject: subject, Conditions: conds, Inverted: true})
}

func linkedStudentIDs(students []identity.Student) []string {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return ids
}

// guardianBlock grants a parent or guardian access to billing records owned
// by their linked students. With no linked students the block is empty.
func (b *builder) guardianBlock(studentIDs []string) {
	if len(studentIDs) == 0 {
		return
	}
	owned := Conditions{"studentId": {In: studentIDs}}

	b.can(ActionRead, SubjectInvoice, owned)
	b.can(ActionDownload, SubjectInvoice, owned)
	b.can(ActionPay, SubjectInvoice, owned)
	// Settled and voided invoices are never payable, even inside the
	// linked scope.
	b.cannot(ActionPay, SubjectInvoice, Conditions{"status": {In: []string{"paid", "void"}}})

	b.can(ActionCreate, SubjectPayment, owned)
	b.can(ActionRead, SubjectPayment, owned)
	b.can(ActionDownload, SubjectPayment, owned)

	b.can(ActionRead, SubjectPaymentPlan, owned)
	b.can(ActionCreate, SubjectPaymentPlan, owned)
	b.can(ActionUpdate, SubjectPaymentPlan, owned)
	b.can(ActionCancel, SubjectPaymentPlan, owned)

	b.can(ActionRead, SubjectFeeSchedule, owned)
	b.can(ActionRead, SubjectFeeAssignment, owned)

	b.can(ActionRead, SubjectClearance, owned)
	b.can(ActionDownload, SubjectClearance, owned)

	b.can(ActionRead, SubjectStudent, Conditions{"id": {In: studentIDs}})
}

// studentBlock grants a student read-only access to their own records. The
// student is its own single linked entity.
func (b *builder) studentBlock(studentID string) {
	own := Conditions{"studentId": {Eq: studentID}}

	b.can(ActionRead, SubjectInvoice, own)
	b.can(ActionDownload, SubjectInvoice, own)

	b.can(ActionRead, SubjectPayment, own)
	b.can(ActionDownload, SubjectPayment, own)

	b.can(ActionRead, SubjectFeeSchedule, own)
	b.can(ActionRead, SubjectFeeAssignment, own)

	b.can(ActionRead, SubjectClearance, own)
	b.can(ActionDownload, SubjectClearance, own)

	b.can(ActionRead, SubjectStudent, Conditions{"id": {Eq: studentID}})
}

// institutionAdminBlock grants tenant-wide management, every rule scoped to
// the admin's own institution.
func (b *builder) institutionAdminBlock(institutionID string) {
	tenant := Conditions{"institutionId": {Eq: institutionID}}

	b.can(ActionManage, SubjectStudent, tenant)
	b.can(ActionManage, SubjectFeeStructure, tenant)
	b.can(ActionManage, SubjectFeeSchedule, tenant)
	b.can(ActionManage, SubjectFeeAssignment, tenant)

	b.can(ActionRead, SubjectInvoice, tenant)
	b.can(ActionDownload, SubjectInvoice, tenant)
	b.can(ActionRead, SubjectPayment, tenant)
	b.can(ActionDownload, SubjectPayment, tenant)
	b.can(ActionRead, SubjectPaymentPlan, tenant)

	b.can(ActionReconcile, SubjectPayment, tenant)
	b.can(ActionRead, SubjectReconciliation, tenant)
	b.can(ActionCreate, SubjectReconciliation, tenant)

	b.can(ActionRead, SubjectReport, tenant)
	b.can(ActionExport, SubjectReport, tenant)
}

// supportBlock grants cross-tenant read access plus ticket management. The
// override flag is an explicit escalation path: it unlocks void/refund and
// unscoped record edits that support normally cannot perform.
func (b *builder) supportBlock(override bool) {
	b.can(ActionRead, SubjectInvoice, nil)
	b.can(ActionRead, SubjectPayment, nil)
	b.can(ActionRead, SubjectPaymentPlan, nil)
	b.can(ActionRead, SubjectUser, nil)
	b.can(ActionRead, SubjectStudent, nil)
	b.can(ActionRead, SubjectReport, nil)

	b.can(ActionManage, SubjectSupportTicket, nil)

	if override {
		b.can(ActionVoid, SubjectInvoice, nil)
		b.can(ActionRefund, SubjectPayment, nil)
		b.can(ActionUpdate, SubjectUser, nil)
		b.can(ActionUpdate, SubjectStudent, nil)
	}
}

// financeBlock grants global transaction visibility, reconciliation and
// export.
func (b *builder) financeBlock() {
	b.can(ActionRead, SubjectPayment, nil)
	b.can(ActionRead, SubjectInvoice, nil)
	b.can(ActionRead, SubjectPaymentPlan, nil)
	b.can(ActionDownload, SubjectPayment, nil)
	b.can(ActionDownload, SubjectInvoice, nil)

	b.can(ActionReconcile, SubjectPayment, nil)
	b.can(ActionRead, SubjectReconciliation, nil)
	b.can(ActionCreate, SubjectReconciliation, nil)
	b.can(ActionUpdate, SubjectReconciliation, nil)

	b.can(ActionRead, SubjectReport, nil)
	b.can(ActionExport, SubjectReport, nil)
	b.can(ActionExport, SubjectPayment, nil)
	b.can(ActionExport, SubjectInvoice, nil)

	b.can(ActionRead, SubjectUser, nil)
	b.can(ActionRead, SubjectInstitution, nil)
}

// merchantBlock grants merchant onboarding management and settlement
// visibility.
func (b *builder) merchantBlock() {
	b.can(ActionManage, SubjectMerchant, nil)
	b.can(ActionRead, SubjectReconciliation, nil)
	b.can(ActionRead, SubjectPayment, nil)
}

// selfProfileBlock applies to every authenticated role: an identity may
// always view and edit its own user record.
func (b *builder) selfProfileBlock(userID string) {
	self := Conditions{"id": {Eq: userID}}
	b.can(ActionRead, SubjectUser, self)
	b.can(ActionUpdate, SubjectUser, self)
}

// heldPermissionBlock appends grants for each held permission flag,
// independent of role. Tenant-affiliated identities stay tenant-scoped.
func (b *builder) heldPermissionBlock(ident *identity.Identity) {
	tenantScoped := func() Conditions {
		if ident.InstitutionID != "" {
			return Conditions{"institutionId": {Eq: ident.InstitutionID}}
		}
		return nil
	}

	if ident.HasPermission(PermManageStudents) {
		b.can(ActionManage, SubjectStudent, tenantScoped())
	}
	if ident.HasPermission(PermApproveFees) {
		b.can(ActionApprove, SubjectFeeSchedule, tenantScoped())
	}
	if ident.HasPermission(PermViewFinance) {
		b.can(ActionRead, SubjectReport, tenantScoped())
	}
	if ident.HasPermission(PermManageAdmins) {
		adminOnly := Conditions{"role": {In: adminManagedRoles}}
		b.can(ActionManage, SubjectUser, adminOnly)
		b.can(ActionCreate, SubjectUser, adminOnly)
		b.can(ActionUpdate, SubjectUser, adminOnly)
		b.can(ActionDelete, SubjectUser, adminOnly)
	}
}
