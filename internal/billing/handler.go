package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/paylite-technologies/payng/internal/authz"
	"github.com/paylite-technologies/payng/internal/identity"
	"github.com/paylite-technologies/payng/internal/platform/httpx"
	"github.com/paylite-technologies/payng/internal/shared"
)

// Handler serves the billing query surface. It is the main consumer of the
// ability API: collections are narrowed with the filter and mutations are
// gated with instance-level point queries.
type Handler struct {
	logger  *slog.Logger
	repo    Repository
	printer *message.Printer

	// Audit, when set, records override mutations such as voids.
	Audit *shared.AuditLogger
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{
		logger:  logger,
		repo:    repo,
		printer: message.NewPrinter(language.English),
	}
}

// MountRoutes registers billing routes. Void is gated at the route level with
// a type-level ability check; list routes cannot be, because conditioned
// grants only resolve against instances, so they filter rows instead.
func (h *Handler) MountRoutes(r chi.Router, ability authz.Middleware) {
	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{id}", h.getInvoice)
	r.Post("/invoices/{id}/pay", h.payInvoice)
	r.With(ability.Require(authz.ActionVoid, authz.SubjectInvoice)).
		Post("/invoices/{id}/void", h.voidInvoice)
	r.Get("/payments", h.listPayments)
	r.Get("/clearances", h.listClearances)
}

type invoiceView struct {
	Invoice
	DisplayAmount string `json:"display_amount"`
	// CanPay and CanDownload let the client hide buttons without issuing a
	// second round of queries; the server still re-checks on mutation.
	CanPay      bool `json:"can_pay"`
	CanDownload bool `json:"can_download"`
}

func (h *Handler) invoiceView(rs *authz.Ruleset, inv Invoice) invoiceView {
	return invoiceView{
		Invoice:       inv,
		DisplayAmount: h.formatAmount(inv.Currency, inv.AmountMinor),
		CanPay:        rs.Can(authz.ActionPay, inv),
		CanDownload:   rs.Can(authz.ActionDownload, inv),
	}
}

func (h *Handler) formatAmount(currency string, minor int64) string {
	return h.printer.Sprintf("%s %d.%02d", currency, minor/100, minor%100)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	rs := authz.FromContext(r.Context())

	invoices, err := h.repo.ListInvoices(r.Context())
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	visible := authz.Filter(rs, authz.ActionRead, invoices)
	views := make([]invoiceView, 0, len(visible))
	for _, inv := range visible {
		views = append(views, h.invoiceView(rs, inv))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": views})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	rs := authz.FromContext(r.Context())

	inv, err := h.repo.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if rs.Cannot(authz.ActionRead, inv) {
		// Hide existence of records the caller may not read.
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	httpx.JSON(w, http.StatusOK, h.invoiceView(rs, inv))
}

func (h *Handler) payInvoice(w http.ResponseWriter, r *http.Request) {
	rs := authz.FromContext(r.Context())

	inv, err := h.repo.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if rs.Cannot(authz.ActionPay, inv) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "not permitted to pay this invoice")
		return
	}
	if inv.Status != InvoiceOpen && inv.Status != InvoicePartial {
		httpx.Problem(w, http.StatusConflict, "Conflict", "invoice is not payable")
		return
	}

	// Gateway hand-off happens elsewhere; this records a settled payment
	// for the demo channel and closes the invoice atomically.
	payment, err := h.repo.RecordPayment(r.Context(), inv, "card")
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"payment": payment, "invoice_status": string(InvoicePaid)})
}

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	rs := authz.FromContext(r.Context())

	inv, err := h.repo.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if rs.Cannot(authz.ActionVoid, inv) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "void requires an override grant")
		return
	}
	if err := h.repo.SetInvoiceStatus(r.Context(), inv.ID, InvoiceVoid); err != nil {
		h.respondError(w, err)
		return
	}
	if h.Audit != nil {
		actor := identity.FromContext(r.Context())
		if err := h.Audit.Record(r.Context(), shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "invoice.void",
			Entity:   "invoice",
			EntityID: inv.ID,
			Meta:     map[string]any{"reference": inv.Reference},
		}); err != nil {
			h.logger.Warn("audit void", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"invoice_id": inv.ID, "status": string(InvoiceVoid)})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	rs := authz.FromContext(r.Context())

	payments, err := h.repo.ListPayments(r.Context())
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payments": authz.Filter(rs, authz.ActionRead, payments),
	})
}

func (h *Handler) listClearances(w http.ResponseWriter, r *http.Request) {
	rs := authz.FromContext(r.Context())

	clearances, err := h.repo.ListClearances(r.Context())
	if err != nil {
		h.logger.Error("list clearances", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"clearances": authz.Filter(rs, authz.ActionRead, clearances),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrConflict) {
		h.logger.Error("billing repository", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
