package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gramdhan/ledger/internal/adapter/http/dto"
	"github.com/gramdhan/ledger/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/activity?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/activity?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestParseTimeQuery(t *testing.T) {
	cursor := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	req := httptest.NewRequest(http.MethodGet, "/activity?before="+url.QueryEscape(cursor.Format(time.RFC3339Nano)), nil)
	if got := parseTimeQuery(req, "before"); !got.Equal(cursor) {
		t.Fatalf("expected %v, got %v", cursor, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/activity?before=not-a-time", nil)
	if got := parseTimeQuery(req, "before"); !got.IsZero() {
		t.Fatalf("expected zero time for malformed cursor, got %v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/activity", nil)
	if got := parseTimeQuery(req, "before"); !got.IsZero() {
		t.Fatalf("expected zero time when missing, got %v", got)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"recipient not found", domain.ErrRecipientNotFound, http.StatusNotFound},
		{"group not found", domain.ErrGroupNotFound, http.StatusNotFound},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"same account", domain.ErrSameAccount, http.StatusBadRequest},
		{"invalid policy", domain.ErrInvalidPolicy, http.StatusBadRequest},
		{"concurrency conflict", domain.ErrConcurrencyConflict, http.StatusConflict},
		{"duplicate member", domain.ErrDuplicateMember, http.StatusConflict},
		{"record immutable", domain.ErrRecordImmutable, http.StatusConflict},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"amount outside policy", domain.ErrAmountOutsidePolicy, http.StatusUnprocessableEntity},
		{"group inactive", domain.ErrGroupInactive, http.StatusUnprocessableEntity},
		{"unauthorized", domain.ErrUnauthorized, http.StatusForbidden},
		{"quote failed", domain.ErrQuoteFailed, http.StatusBadGateway},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	payload := map[string]string{"status": "ok"}

	writeJSON(rr, http.StatusCreated, payload)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}

	var decoded map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if decoded["status"] != "ok" {
		t.Fatalf("expected payload to round-trip, got %+v", decoded)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "bad request", "detail")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Error != "bad request" {
		t.Fatalf("expected error message to propagate, got %+v", resp)
	}
}
