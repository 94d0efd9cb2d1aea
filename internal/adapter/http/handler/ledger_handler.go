package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gramdhan/ledger/internal/adapter/http/dto"
	"github.com/gramdhan/ledger/internal/adapter/http/middleware"
	"github.com/gramdhan/ledger/internal/usecase"
)

// LedgerHandler handles the value-moving HTTP requests.
type LedgerHandler struct {
	ledgerUC *usecase.LedgerUseCase
	reconUC  *usecase.ReconciliationUseCase
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC *usecase.LedgerUseCase, reconUC *usecase.ReconciliationUseCase) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC, reconUC: reconUC}
}

// Deposit credits the caller's account, creating it on first use.
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	input := req.ToUseCaseInput(caller.OwnerID, r.Header.Get("Idempotency-Key"))
	record, err := h.ledgerUC.Deposit(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to deposit", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(record))
}

// Transfer moves money from the caller to the named recipient.
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	input := req.ToUseCaseInput(caller.OwnerID, r.Header.Get("Idempotency-Key"))
	result, err := h.ledgerUC.Transfer(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to transfer", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromResult(result))
}

// Contribute records a savings-group contribution funded from the
// caller's account.
func (h *LedgerHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	var req dto.ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	input := req.ToUseCaseInput(caller.OwnerID, r.Header.Get("Idempotency-Key"))
	record, err := h.ledgerUC.GroupContribute(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to contribute", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(record))
}

// Consistency runs a full ledger verification pass.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconUC.VerifyLedger(r.Context())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to verify ledger", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, report)
}
