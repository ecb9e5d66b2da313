package billing_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylite-technologies/payng/internal/authz"
	"github.com/paylite-technologies/payng/internal/billing"
	"github.com/paylite-technologies/payng/internal/identity"
	"github.com/paylite-technologies/payng/internal/shared"
)

type stubRepo struct {
	invoices   []billing.Invoice
	payments   []billing.Payment
	clearances []billing.Clearance
	statusSet  map[string]billing.InvoiceStatus
}

func (s *stubRepo) ListInvoices(ctx context.Context) ([]billing.Invoice, error) {
	return s.invoices, nil
}

func (s *stubRepo) GetInvoice(ctx context.Context, id string) (billing.Invoice, error) {
	for _, inv := range s.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return billing.Invoice{}, shared.ErrNotFound
}

func (s *stubRepo) ListPayments(ctx context.Context) ([]billing.Payment, error) {
	return s.payments, nil
}

func (s *stubRepo) ListClearances(ctx context.Context) ([]billing.Clearance, error) {
	return s.clearances, nil
}

func (s *stubRepo) SetInvoiceStatus(ctx context.Context, id string, status billing.InvoiceStatus) error {
	if s.statusSet == nil {
		s.statusSet = make(map[string]billing.InvoiceStatus)
	}
	s.statusSet[id] = status
	return nil
}

func (s *stubRepo) RecordPayment(ctx context.Context, inv billing.Invoice, channel string) (billing.Payment, error) {
	// Mirror the transactional status predicate: once settled or voided the
	// row no longer accepts a payment.
	if status, ok := s.statusSet[inv.ID]; ok && status != billing.InvoiceOpen && status != billing.InvoicePartial {
		return billing.Payment{}, shared.ErrConflict
	}
	payment := billing.Payment{
		ID:            "pay-new",
		InvoiceID:     inv.ID,
		StudentID:     inv.StudentID,
		InstitutionID: inv.InstitutionID,
		AmountMinor:   inv.AmountMinor,
		Currency:      inv.Currency,
		Channel:       channel,
		Status:        "settled",
	}
	s.payments = append(s.payments, payment)
	_ = s.SetInvoiceStatus(ctx, inv.ID, billing.InvoicePaid)
	return payment, nil
}

func fixtureRepo() *stubRepo {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	return &stubRepo{
		invoices: []billing.Invoice{
			{ID: "inv-1", Reference: "PAY-001", StudentID: "stu-1", InstitutionID: "inst-1",
				AmountMinor: 250000, Currency: "NGN", Status: billing.InvoiceOpen, DueDate: due},
			{ID: "inv-2", Reference: "PAY-002", StudentID: "stu-2", InstitutionID: "inst-1",
				AmountMinor: 180000, Currency: "NGN", Status: billing.InvoiceOpen, DueDate: due},
			{ID: "inv-3", Reference: "PAY-003", StudentID: "stu-3", InstitutionID: "inst-2",
				AmountMinor: 90000, Currency: "NGN", Status: billing.InvoicePaid, DueDate: due},
		},
		payments: []billing.Payment{
			{ID: "pay-1", InvoiceID: "inv-3", StudentID: "stu-3", InstitutionID: "inst-2", AmountMinor: 90000, Currency: "NGN", Status: "settled"},
		},
	}
}

func serve(t *testing.T, repo billing.Repository, ident *identity.Identity, students []identity.Student, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := billing.NewHandler(logger, repo)

	r := chi.NewRouter()
	handler.MountRoutes(r, authz.Middleware{Logger: logger})

	req := httptest.NewRequest(method, target, nil)
	ctx := identity.ContextWith(req.Context(), ident, students)
	ctx = authz.ContextWith(ctx, authz.NewRuleset(authz.BuildRules(ident, students)))
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func parentIdent() (*identity.Identity, []identity.Student) {
	ident := &identity.Identity{ID: "par-1", Role: identity.RoleParent}
	students := []identity.Student{{ID: "stu-1", InstitutionID: "inst-1"}}
	return ident, students
}

func TestListInvoicesFiltersToLinkedStudents(t *testing.T) {
	ident, students := parentIdent()
	res := serve(t, fixtureRepo(), ident, students, http.MethodGet, "/invoices")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Invoices []struct {
			ID            string `json:"id"`
			DisplayAmount string `json:"display_amount"`
			CanPay        bool   `json:"can_pay"`
		} `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Len(t, payload.Invoices, 1, "only the linked student's invoice is visible")
	assert.Equal(t, "inv-1", payload.Invoices[0].ID)
	assert.Equal(t, "NGN 2,500.00", payload.Invoices[0].DisplayAmount)
	assert.True(t, payload.Invoices[0].CanPay)
}

func TestListInvoicesSupportSeesAll(t *testing.T) {
	support := &identity.Identity{ID: "sup-1", Role: identity.RoleSupport}
	res := serve(t, fixtureRepo(), support, nil, http.MethodGet, "/invoices")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Invoices []json.RawMessage `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Len(t, payload.Invoices, 3)
}

func TestGetInvoiceMasksForbiddenAsNotFound(t *testing.T) {
	ident, students := parentIdent()

	res := serve(t, fixtureRepo(), ident, students, http.MethodGet, "/invoices/inv-1")
	assert.Equal(t, http.StatusOK, res.Code)

	res = serve(t, fixtureRepo(), ident, students, http.MethodGet, "/invoices/inv-2")
	assert.Equal(t, http.StatusNotFound, res.Code, "unlinked invoice must look like it does not exist")

	res = serve(t, fixtureRepo(), ident, students, http.MethodGet, "/invoices/missing")
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestPayInvoiceGatedByScope(t *testing.T) {
	ident, students := parentIdent()

	repo := fixtureRepo()
	res := serve(t, repo, ident, students, http.MethodPost, "/invoices/inv-1/pay")
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, billing.InvoicePaid, repo.statusSet["inv-1"])

	res = serve(t, fixtureRepo(), ident, students, http.MethodPost, "/invoices/inv-2/pay")
	assert.Equal(t, http.StatusForbidden, res.Code)

	// Students are read-only: even their own invoice is not payable.
	student := &identity.Identity{ID: "stu-1", Role: identity.RoleStudent}
	res = serve(t, fixtureRepo(), student, []identity.Student{{ID: "stu-1"}}, http.MethodPost, "/invoices/inv-1/pay")
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestPayInvoiceConflictsOnceSettled(t *testing.T) {
	ident, students := parentIdent()
	repo := fixtureRepo()

	res := serve(t, repo, ident, students, http.MethodPost, "/invoices/inv-1/pay")
	require.Equal(t, http.StatusCreated, res.Code)

	// A racing second pay loses to the status predicate, not to the stale
	// payability read.
	settled := len(repo.payments)
	res = serve(t, repo, ident, students, http.MethodPost, "/invoices/inv-1/pay")
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Len(t, repo.payments, settled, "losing pay must not record a payment")
}

func TestVoidInvoiceRequiresOverride(t *testing.T) {
	repo := fixtureRepo()
	support := &identity.Identity{ID: "sup-1", Role: identity.RoleSupport}

	res := serve(t, repo, support, nil, http.MethodPost, "/invoices/inv-1/void")
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Empty(t, repo.statusSet)

	elevated := &identity.Identity{ID: "sup-1", Role: identity.RoleSupport, Permissions: []string{authz.PermSupportOverride}}
	res = serve(t, repo, elevated, nil, http.MethodPost, "/invoices/inv-1/void")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, billing.InvoiceVoid, repo.statusSet["inv-1"])
}

func TestListPaymentsAnonymousSeesNothing(t *testing.T) {
	res := serve(t, fixtureRepo(), identity.Anonymous(), nil, http.MethodGet, "/payments")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Payments []json.RawMessage `json:"payments"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Empty(t, payload.Payments)
}
