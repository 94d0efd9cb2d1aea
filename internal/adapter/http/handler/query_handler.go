package handler

import (
	"net/http"

	"github.com/gramdhan/ledger/internal/adapter/http/dto"
	"github.com/gramdhan/ledger/internal/adapter/http/middleware"
	"github.com/gramdhan/ledger/internal/usecase"
)

// QueryHandler serves the caller-scoped read projections.
type QueryHandler struct {
	queryUC *usecase.QueryUseCase
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queryUC *usecase.QueryUseCase) *QueryHandler {
	return &QueryHandler{queryUC: queryUC}
}

// Balance returns the caller's balance and month-to-date change.
func (h *QueryHandler) Balance(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	summary, err := h.queryUC.GetBalance(r.Context(), caller.OwnerID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get balance", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromSummary(summary))
}

// Activity returns one page of the caller's recent transactions,
// newest first. The before and beforeId query parameters restart from
// a composite cursor.
func (h *QueryHandler) Activity(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	before := parseTimeQuery(r, "before")
	beforeID := r.URL.Query().Get("beforeId")

	page, err := h.queryUC.ListRecentTransactions(r.Context(), caller.OwnerID, limit, before, beforeID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list transactions", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.ActivityFromPage(page))
}
