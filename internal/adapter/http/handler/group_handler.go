package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gramdhan/ledger/internal/adapter/http/dto"
	"github.com/gramdhan/ledger/internal/adapter/http/middleware"
	"github.com/gramdhan/ledger/internal/usecase"
)

// GroupHandler handles savings-group HTTP requests.
type GroupHandler struct {
	groupUC *usecase.SavingsGroupUseCase
	queryUC *usecase.QueryUseCase
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupUC *usecase.SavingsGroupUseCase, queryUC *usecase.QueryUseCase) *GroupHandler {
	return &GroupHandler{groupUC: groupUC, queryUC: queryUC}
}

// Create creates a new savings group.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid interest rate", err.Error())
		return
	}

	group, err := h.groupUC.CreateGroup(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create group", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupFromDomain(group))
}

// Join adds the caller as a member of the group.
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	groupID := chi.URLParam(r, "id")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group ID", "")
		return
	}

	var req dto.JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	group, err := h.groupUC.Join(r.Context(), groupID, caller.OwnerID, req.ContributionAmount)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to join group", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// Get returns the cached presentation summary of a group.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group ID", "")
		return
	}

	summary, err := h.queryUC.GetGroupSummary(r.Context(), groupID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get group", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// List lists savings groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	groups, err := h.groupUC.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list groups", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupsFromDomain(groups))
}
