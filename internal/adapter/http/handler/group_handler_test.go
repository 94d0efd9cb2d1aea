package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gramdhan/ledger/internal/adapter/http/dto"
	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
)

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func (f *handlerFixture) seedGroup(t *testing.T, id, name string, policy domain.ContributionPolicy) {
	t.Helper()
	now := time.Now().UTC()
	err := f.groups.Create(context.Background(), &domain.SavingsGroup{
		ID:               id,
		Name:             name,
		Policy:           policy,
		MeetingFrequency: "weekly",
		InterestRate:     decimal.RequireFromString("2.5"),
		Status:           domain.GroupStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		t.Fatalf("failed to seed group: %v", err)
	}
}

func TestGroupHandler_Create_Success(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewGroupHandler(f.groupUC, f.queryUC)

	body, _ := json.Marshal(dto.CreateGroupRequest{
		Name:             "Mahila Bachat Gat",
		PolicyKind:       "fixed",
		PolicyAmount:     10000,
		MeetingFrequency: "weekly",
		InterestRate:     "2.5",
	})
	req := withCaller(httptest.NewRequest(http.MethodPost, "/groups", bytes.NewReader(body)), "asha")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.GroupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "Mahila Bachat Gat" || resp.Status != "active" || resp.MemberCount != 0 {
		t.Fatalf("unexpected group: %+v", resp)
	}
	if resp.InterestRate != "2.50" {
		t.Fatalf("expected interest rate 2.50, got %s", resp.InterestRate)
	}
}

func TestGroupHandler_Create_RejectsInvalidPolicy(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewGroupHandler(f.groupUC, f.queryUC)

	body, _ := json.Marshal(dto.CreateGroupRequest{
		Name:             "Broken Group",
		PolicyKind:       "flexible",
		MeetingFrequency: "weekly",
	})
	req := withCaller(httptest.NewRequest(http.MethodPost, "/groups", bytes.NewReader(body)), "asha")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGroupHandler_Join_Success(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewGroupHandler(f.groupUC, f.queryUC)
	f.seedGroup(t, "grp-1", "Mahila Bachat Gat", domain.ContributionPolicy{
		Kind:   domain.PolicyFixed,
		Amount: 10000,
	})

	body := bytes.NewBufferString(`{"contributionAmount":10000}`)
	req := withCaller(httptest.NewRequest(http.MethodPost, "/groups/grp-1/join", body), "asha")
	req = withURLParam(req, "id", "grp-1")
	rec := httptest.NewRecorder()

	h.Join(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.GroupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.MemberCount != 1 {
		t.Fatalf("expected one member after join, got %d", resp.MemberCount)
	}
}

func TestGroupHandler_Join_AmountOutsidePolicy(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewGroupHandler(f.groupUC, f.queryUC)
	f.seedGroup(t, "grp-1", "Mahila Bachat Gat", domain.ContributionPolicy{
		Kind:   domain.PolicyFixed,
		Amount: 10000,
	})

	body := bytes.NewBufferString(`{"contributionAmount":2500}`)
	req := withCaller(httptest.NewRequest(http.MethodPost, "/groups/grp-1/join", body), "asha")
	req = withURLParam(req, "id", "grp-1")
	rec := httptest.NewRecorder()

	h.Join(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGroupHandler_Get_ReturnsSummary(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewGroupHandler(f.groupUC, f.queryUC)
	f.seedGroup(t, "grp-1", "Mahila Bachat Gat", domain.ContributionPolicy{
		Kind:   domain.PolicyFixed,
		Amount: 10000,
	})

	req := withCaller(httptest.NewRequest(http.MethodGet, "/groups/grp-1", nil), "asha")
	req = withURLParam(req, "id", "grp-1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary usecase.GroupSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.GroupID != "grp-1" || summary.Name != "Mahila Bachat Gat" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Contribution == "" {
		t.Fatalf("expected a formatted contribution line")
	}
}

func TestGroupHandler_Get_NotFound(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewGroupHandler(f.groupUC, f.queryUC)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/groups/missing", nil), "asha")
	req = withURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGroupHandler_List(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewGroupHandler(f.groupUC, f.queryUC)
	f.seedGroup(t, "grp-1", "Group One", domain.ContributionPolicy{Kind: domain.PolicyFixed, Amount: 5000})
	f.seedGroup(t, "grp-2", "Group Two", domain.ContributionPolicy{Kind: domain.PolicyVariable, Min: 1000, Max: 20000})

	req := withCaller(httptest.NewRequest(http.MethodGet, "/groups?limit=10", nil), "asha")
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []*dto.GroupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected two groups, got %d", len(resp))
	}
}
