package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase/mocks"
)

func (f *handlerFixture) appendRecord(t *testing.T, rec *domain.TransactionRecord) {
	t.Helper()
	tx := &mocks.MockTransaction{}
	if err := f.records.Append(context.Background(), tx, rec); err != nil {
		t.Fatalf("append record: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestQueryHandler_Balance_FieldNames(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAccount(t, "acc-1", "asha", "Asha Devi", 75000)
	f.appendRecord(t, &domain.TransactionRecord{
		ID:            "tr-1",
		AccountID:     "acc-1",
		Direction:     domain.DirectionCredit,
		Kind:          domain.KindDeposit,
		Amount:        30000,
		Status:        domain.StatusCompleted,
		CorrelationID: "corr-1",
		Timestamp:     time.Now().UTC(),
	})

	handler := NewQueryHandler(f.queryUC)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/balance", nil), "asha")
	rec := httptest.NewRecorder()

	handler.Balance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The JSON contract is fixed; clients depend on these exact keys.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := raw["balance"]; !ok {
		t.Fatalf("expected balance key, got %s", rec.Body.String())
	}

	var change map[string]json.RawMessage
	if err := json.Unmarshal(raw["monthlyChange"], &change); err != nil {
		t.Fatalf("expected monthlyChange object, got %s", rec.Body.String())
	}
	if _, ok := change["amount"]; !ok {
		t.Fatalf("expected monthlyChange.amount, got %s", rec.Body.String())
	}
	if _, ok := change["isPositive"]; !ok {
		t.Fatalf("expected monthlyChange.isPositive, got %s", rec.Body.String())
	}

	var balance int64
	if err := json.Unmarshal(raw["balance"], &balance); err != nil || balance != 75000 {
		t.Fatalf("expected balance 75000, got %s", raw["balance"])
	}
}

func TestQueryHandler_Balance_UnknownOwner(t *testing.T) {
	f := newHandlerFixture(t)
	handler := NewQueryHandler(f.queryUC)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/balance", nil), "nobody")
	rec := httptest.NewRecorder()

	handler.Balance(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestQueryHandler_Activity_FieldNames(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAccount(t, "acc-1", "asha", "Asha Devi", 75000)
	f.appendRecord(t, &domain.TransactionRecord{
		ID:            "tr-1",
		AccountID:     "acc-1",
		Direction:     domain.DirectionDebit,
		Kind:          domain.KindSend,
		Amount:        20000,
		Counterparty:  "Binod Kumar",
		Status:        domain.StatusCompleted,
		CorrelationID: "corr-1",
		Timestamp:     time.Now().UTC().Add(-time.Hour),
	})
	f.appendRecord(t, &domain.TransactionRecord{
		ID:            "tr-2",
		AccountID:     "acc-1",
		Direction:     domain.DirectionDebit,
		Kind:          domain.KindWithdraw,
		Amount:        10000,
		Counterparty:  "GRAMIN-BLUECHIP",
		Status:        domain.StatusPending,
		CorrelationID: "corr-2",
		Timestamp:     time.Now().UTC(),
	})

	handler := NewQueryHandler(f.queryUC)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/activity", nil), "asha")
	rec := httptest.NewRecorder()

	handler.Activity(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var raw struct {
		Transactions []map[string]json.RawMessage `json:"transactions"`
		PendingCount *int                         `json:"pendingCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if raw.PendingCount == nil || *raw.PendingCount != 1 {
		t.Fatalf("expected pendingCount 1, got %s", rec.Body.String())
	}
	if len(raw.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(raw.Transactions))
	}

	for _, key := range []string{"id", "type", "amount", "with", "status", "timestamp"} {
		if _, ok := raw.Transactions[0][key]; !ok {
			t.Fatalf("expected transaction key %q, got %s", key, rec.Body.String())
		}
	}

	// Newest first.
	var firstID string
	if err := json.Unmarshal(raw.Transactions[0]["id"], &firstID); err != nil || firstID != "tr-2" {
		t.Fatalf("expected newest record first, got %s", raw.Transactions[0]["id"])
	}
}
