// Package billing exposes the invoice and payment query surface. Every list
// is narrowed through the ability filter and every mutation is gated by an
// instance-level ability check: the fetch layer itself does not scope data.
package billing

import (
	"time"

	"github.com/paylite-technologies/payng/internal/authz"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceOpen    InvoiceStatus = "open"
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePartial InvoiceStatus = "partial"
	InvoiceVoid    InvoiceStatus = "void"
)

// Invoice is a fee invoice issued to a student.
type Invoice struct {
	ID            string        `json:"id"`
	Reference     string        `json:"reference"`
	StudentID     string        `json:"student_id"`
	InstitutionID string        `json:"institution_id"`
	Description   string        `json:"description"`
	AmountMinor   int64         `json:"amount_minor"`
	Currency      string        `json:"currency"`
	Status        InvoiceStatus `json:"status"`
	DueDate       time.Time     `json:"due_date"`
	CreatedAt     time.Time     `json:"created_at"`
}

// SubjectType implements authz.Resource.
func (i Invoice) SubjectType() authz.Subject { return authz.SubjectInvoice }

// Attribute implements authz.Resource.
func (i Invoice) Attribute(name string) (string, bool) {
	switch name {
	case "id":
		return i.ID, true
	case "studentId":
		return i.StudentID, true
	case "institutionId":
		return i.InstitutionID, true
	case "status":
		return string(i.Status), true
	default:
		return "", false
	}
}

// Payment is a settled or pending payment against an invoice.
type Payment struct {
	ID            string    `json:"id"`
	InvoiceID     string    `json:"invoice_id"`
	StudentID     string    `json:"student_id"`
	InstitutionID string    `json:"institution_id"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
	Channel       string    `json:"channel"`
	Status        string    `json:"status"`
	PaidAt        time.Time `json:"paid_at"`
}

// SubjectType implements authz.Resource.
func (p Payment) SubjectType() authz.Subject { return authz.SubjectPayment }

// Attribute implements authz.Resource.
func (p Payment) Attribute(name string) (string, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "invoiceId":
		return p.InvoiceID, true
	case "studentId":
		return p.StudentID, true
	case "institutionId":
		return p.InstitutionID, true
	case "status":
		return p.Status, true
	default:
		return "", false
	}
}

// Clearance is a certificate that a student has no outstanding fees.
type Clearance struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	InstitutionID string    `json:"institution_id"`
	Term          string    `json:"term"`
	IssuedAt      time.Time `json:"issued_at"`
}

// SubjectType implements authz.Resource.
func (c Clearance) SubjectType() authz.Subject { return authz.SubjectClearance }

// Attribute implements authz.Resource.
func (c Clearance) Attribute(name string) (string, bool) {
	switch name {
	case "id":
		return c.ID, true
	case "studentId":
		return c.StudentID, true
	case "institutionId":
		return c.InstitutionID, true
	default:
		return "", false
	}
}
