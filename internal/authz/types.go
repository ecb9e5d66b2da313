// Package authz implements the attribute based access control core for the
// platform. Rules are built per identity from declarative role blocks, and
// every gate in the application (route guard, HTTP middleware, collection
// filters) funnels through the same evaluator.
package authz

// Action is one verb from the closed action vocabulary.
type Action string

const (
	ActionRead      Action = "read"
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionPay       Action = "pay"
	ActionDownload  Action = "download"
	ActionApprove   Action = "approve"
	ActionCancel    Action = "cancel"
	ActionReconcile Action = "reconcile"
	ActionVoid      Action = "void"
	ActionRefund    Action = "refund"
	ActionExport    Action = "export"
	// ActionManage is the semantic superset of every other action.
	ActionManage Action = "manage"
)

// Actions lists the full closed vocabulary.
var Actions = []Action{
	ActionRead, ActionCreate, ActionUpdate, ActionDelete,
	ActionPay, ActionDownload, ActionApprove, ActionCancel,
	ActionReconcile, ActionVoid, ActionRefund, ActionExport,
	ActionManage,
}

// Subject is one noun from the closed subject vocabulary. A Subject value is
// itself a Resource: used as one, it expresses a type-level query that
// carries no instance fields, so conditioned rules can never grant it.
type Subject string

const (
	SubjectInvoice        Subject = "Invoice"
	SubjectPayment        Subject = "Payment"
	SubjectPaymentPlan    Subject = "PaymentPlan"
	SubjectStudent        Subject = "Student"
	SubjectFeeSchedule    Subject = "FeeSchedule"
	SubjectFeeStructure   Subject = "FeeStructure"
	SubjectFeeAssignment  Subject = "FeeAssignment"
	SubjectInstitution    Subject = "Institution"
	SubjectUser           Subject = "User"
	SubjectReport         Subject = "Report"
	SubjectReconciliation Subject = "Reconciliation"
	SubjectSupportTicket  Subject = "SupportTicket"
	SubjectMerchant       Subject = "Merchant"
	SubjectClearance      Subject = "Clearance"
	// SubjectAll matches every subject type.
	SubjectAll Subject = "all"
)

// Subjects lists the full closed vocabulary, wildcard excluded.
var Subjects = []Subject{
	SubjectInvoice, SubjectPayment, SubjectPaymentPlan, SubjectStudent,
	SubjectFeeSchedule, SubjectFeeStructure, SubjectFeeAssignment,
	SubjectInstitution, SubjectUser, SubjectReport, SubjectReconciliation,
	SubjectSupportTicket, SubjectMerchant, SubjectClearance,
}

// Resource is anything an ability query can be asked about. Matching is
// structural: a rule's conditions compare named attributes, so domain types
// only need to expose their scoping fields by name.
type Resource interface {
	SubjectType() Subject
	// Attribute returns the named scoping field. The second return is false
	// when the instance does not carry the field; an absent field can never
	// satisfy a condition.
	Attribute(name string) (string, bool)
}

// SubjectType implements Resource for bare type-level queries.
func (s Subject) SubjectType() Subject { return s }

// Attribute implements Resource; a bare subject carries no fields.
func (s Subject) Attribute(string) (string, bool) { return "", false }

// Record is an ad hoc resource instance, used where no domain struct exists
// (for example when a route parameter supplies the scoping value).
type Record struct {
	Subject Subject
	Fields  map[string]string
}

// SubjectType implements Resource.
func (r Record) SubjectType() Subject { return r.Subject }

// Attribute implements Resource.
func (r Record) Attribute(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Matcher constrains one attribute: either equality against Eq or set
// membership in In. A zero Matcher never matches.
type Matcher struct {
	Eq string
	In []string
}

// Matches reports whether the value satisfies the matcher.
func (m Matcher) Matches(value string) bool {
	if m.Eq != "" {
		return value == m.Eq
	}
	for _, candidate := range m.In {
		if value == candidate {
			return true
		}
	}
	return false
}

// Conditions maps attribute names to matchers. Empty conditions apply a rule
// unconditionally to every instance of its subject type.
type Conditions map[string]Matcher

// SatisfiedBy reports whether every condition holds for the resource.
func (c Conditions) SatisfiedBy(res Resource) bool {
	for field, matcher := range c {
		value, ok := res.Attribute(field)
		if !ok || !matcher.Matches(value) {
			return false
		}
	}
	return true
}

// Rule is one entry in a computed permission set.
type Rule struct {
	Action     Action
	Subject    Subject
	Conditions Conditions
	// Inverted marks an explicit deny. Denies always win over grants on the
	// same action/subject pair.
	Inverted bool
}
