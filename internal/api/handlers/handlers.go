package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/clearledger/internal/api/middleware"
	"github.com/dvloznov/clearledger/internal/ledger"
)

// LedgerReader is the read-only part of the ledger exposed over HTTP.
type LedgerReader interface {
	ListCompanyIDs(ctx context.Context) ([]string, error)
	Transactions(ctx context.Context, companyID string) ([]ledger.Transaction, error)
	SummarizeByCategory(ctx context.Context, companyID string) (map[string]decimal.Decimal, error)
}

// CompaniesHandler handles company and transaction endpoints.
type CompaniesHandler struct {
	store LedgerReader
	log   zerolog.Logger
}

// NewCompaniesHandler creates a new companies handler.
func NewCompaniesHandler(store LedgerReader, log zerolog.Logger) *CompaniesHandler {
	return &CompaniesHandler{
		store: store,
		log:   log,
	}
}

// ListCompanies handles GET /companies
func (h *CompaniesHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListCompanyIDs(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err, "Failed to list companies")
		return
	}

	// Return array directly for frontend compatibility
	if ids == nil {
		ids = []string{}
	}
	middleware.WriteJSON(w, http.StatusOK, ids)
}

// ListTransactions handles GET /companies/{companyID}/transactions
func (h *CompaniesHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	companyID := r.PathValue("companyID")

	transactions, err := h.store.Transactions(r.Context(), companyID)
	if err != nil {
		h.writeStoreError(w, r, err, "Failed to list transactions")
		return
	}

	if transactions == nil {
		transactions = []ledger.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// Summary handles GET /companies/{companyID}/summary
func (h *CompaniesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	companyID := r.PathValue("companyID")

	summary, err := h.store.SummarizeByCategory(r.Context(), companyID)
	if err != nil {
		h.writeStoreError(w, r, err, "Failed to summarize transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}

// writeStoreError maps ledger errors to responses. Storage details are logged, never returned.
func (h *CompaniesHandler) writeStoreError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, ledger.ErrUnknownCompany):
		middleware.WriteError(w, http.StatusNotFound, "Company not found")
	case errors.Is(err, ledger.ErrInvalidInput):
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request")
	default:
		h.log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg(message)
		middleware.WriteError(w, http.StatusInternalServerError, message)
	}
}
