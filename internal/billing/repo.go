package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylite-technologies/payng/internal/platform/db"
	"github.com/paylite-technologies/payng/internal/shared"
)

// Repository defines persistence operations for billing reads and the
// mutations the handlers gate.
type Repository interface {
	ListInvoices(ctx context.Context) ([]Invoice, error)
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	ListPayments(ctx context.Context) ([]Payment, error)
	ListClearances(ctx context.Context) ([]Clearance, error)
	SetInvoiceStatus(ctx context.Context, id string, status InvoiceStatus) error
	RecordPayment(ctx context.Context, inv Invoice, channel string) (Payment, error)
}

// PGRepository implements Repository using PostgreSQL. Queries do not scope
// by caller: row-level narrowing is the ability filter's job, and keeping
// the queries broad makes that contract visible in tests.
type PGRepository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const invoiceColumns = `id, reference, student_id, institution_id, description, amount_minor, currency, status, due_date, created_at`

// ListInvoices returns all invoices ordered most recent first.
func (r *PGRepository) ListInvoices(ctx context.Context) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Reference, &inv.StudentID, &inv.InstitutionID,
			&inv.Description, &inv.AmountMinor, &inv.Currency, &inv.Status, &inv.DueDate, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// GetInvoice fetches one invoice by id.
func (r *PGRepository) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	var inv Invoice
	err := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id).Scan(
		&inv.ID, &inv.Reference, &inv.StudentID, &inv.InstitutionID,
		&inv.Description, &inv.AmountMinor, &inv.Currency, &inv.Status, &inv.DueDate, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

// ListPayments returns all payments ordered most recent first.
func (r *PGRepository) ListPayments(ctx context.Context) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, invoice_id, student_id, institution_id, amount_minor, currency, channel, status, paid_at FROM payments ORDER BY paid_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.StudentID, &p.InstitutionID,
			&p.AmountMinor, &p.Currency, &p.Channel, &p.Status, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListClearances returns all issued clearance certificates.
func (r *PGRepository) ListClearances(ctx context.Context) ([]Clearance, error) {
	rows, err := r.db.Query(ctx, `SELECT id, student_id, institution_id, term, issued_at FROM clearances ORDER BY issued_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clearances []Clearance
	for rows.Next() {
		var c Clearance
		if err := rows.Scan(&c.ID, &c.StudentID, &c.InstitutionID, &c.Term, &c.IssuedAt); err != nil {
			return nil, err
		}
		clearances = append(clearances, c)
	}
	return clearances, rows.Err()
}

// RecordPayment writes a settled payment for the invoice's full amount and
// marks the invoice paid, in one transaction.
func (r *PGRepository) RecordPayment(ctx context.Context, inv Invoice, channel string) (Payment, error) {
	payment := Payment{
		ID:            uuid.NewString(),
		InvoiceID:     inv.ID,
		StudentID:     inv.StudentID,
		InstitutionID: inv.InstitutionID,
		AmountMinor:   inv.AmountMinor,
		Currency:      inv.Currency,
		Channel:       channel,
		Status:        "settled",
		PaidAt:        time.Now().UTC(),
	}

	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO payments (id, invoice_id, student_id, institution_id, amount_minor, currency, channel, status, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			payment.ID, payment.InvoiceID, payment.StudentID, payment.InstitutionID,
			payment.AmountMinor, payment.Currency, payment.Channel, payment.Status, payment.PaidAt); err != nil {
			return err
		}
		// The status predicate makes concurrent pays race on the row: the
		// loser sees zero rows and the whole transaction rolls back.
		tag, err := tx.Exec(ctx,
			`UPDATE invoices SET status = $2 WHERE id = $1 AND status IN ('open', 'partial')`,
			inv.ID, string(InvoicePaid))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrConflict
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// SetInvoiceStatus updates an invoice's lifecycle state.
func (r *PGRepository) SetInvoiceStatus(ctx context.Context, id string, status InvoiceStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
