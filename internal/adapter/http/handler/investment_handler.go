package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gramdhan/ledger/internal/adapter/http/dto"
	"github.com/gramdhan/ledger/internal/adapter/http/middleware"
	"github.com/gramdhan/ledger/internal/usecase"
)

// InvestmentHandler handles mutual-fund purchase HTTP requests.
type InvestmentHandler struct {
	investUC *usecase.InvestmentUseCase
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(investUC *usecase.InvestmentUseCase) *InvestmentHandler {
	return &InvestmentHandler{investUC: investUC}
}

// Buy debits the caller and records a pending fund purchase at the
// current quoted NAV.
func (h *InvestmentHandler) Buy(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	var req dto.BuyUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	input := req.ToUseCaseInput(caller.OwnerID, r.Header.Get("Idempotency-Key"))
	purchase, err := h.investUC.BuyUnits(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to buy units", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.PurchaseFromResult(purchase))
}

// Settle marks a pending purchase completed once the fund house
// confirms the allotment.
func (h *InvestmentHandler) Settle(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "missing record ID", "")
		return
	}

	if err := h.investUC.SettlePurchase(r.Context(), recordID); err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to settle purchase", err.Error())

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
