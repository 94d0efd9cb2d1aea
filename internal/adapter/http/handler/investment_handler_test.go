package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/gramdhan/ledger/internal/adapter/http/dto"
	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
	"github.com/gramdhan/ledger/internal/usecase/mocks"
)

type investmentFixture struct {
	accounts *mocks.MockAccountRepository
	quotes   *mocks.MockQuoteFeed
	handler  *InvestmentHandler
}

func newInvestmentFixture(t *testing.T) *investmentFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	accounts := mocks.NewMockAccountRepository()
	records := mocks.NewMockTransactionRepository()
	outbox := mocks.NewMockOutboxRepository()
	txMgr := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator()

	authz := mocks.NewMockAuthorizationGate(ctrl)
	authz.EXPECT().
		Authorized(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(true, nil).
		AnyTimes()

	quotes := mocks.NewMockQuoteFeed(ctrl)

	investUC := usecase.NewInvestmentUseCase(
		txMgr, accounts, records, outbox,
		quotes, authz, idGen, nil, zerolog.Nop(),
	)

	return &investmentFixture{
		accounts: accounts,
		quotes:   quotes,
		handler:  NewInvestmentHandler(investUC),
	}
}

func (f *investmentFixture) seedInvestor(t *testing.T, balance int64) {
	t.Helper()
	f.accounts.Seed(&domain.Account{
		ID:            "acc-1",
		OwnerID:       "asha",
		DisplayName:   "Asha Devi",
		WalletAddress: "wallet:asha",
		Balance:       balance,
		Status:        domain.AccountStatusActive,
	})
}

func TestInvestmentHandler_Buy_Success(t *testing.T) {
	f := newInvestmentFixture(t)
	f.seedInvestor(t, 100000)
	f.quotes.EXPECT().
		Quote(gomock.Any(), "NIFTYBEES").
		Return(decimal.RequireFromString("250.50"), nil)

	body, _ := json.Marshal(dto.BuyUnitsRequest{
		FundSymbol: "NIFTYBEES",
		FundName:   "Nifty Index Fund",
		Amount:     50000,
	})
	req := withCaller(httptest.NewRequest(http.MethodPost, "/investments", bytes.NewReader(body)), "asha")
	rec := httptest.NewRecorder()

	f.handler.Buy(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.PurchaseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Record.Type != "withdraw" || resp.Record.Status != "pending" {
		t.Fatalf("unexpected record: %+v", resp.Record)
	}
	// 500 rupees / 250.50 NAV = 1.99600798..., rounded down to 4 places.
	if resp.Units != "1.996" {
		t.Fatalf("expected 1.996 units, got %s", resp.Units)
	}

	acc, err := f.accounts.GetByOwner(context.Background(), "asha")
	if err != nil {
		t.Fatalf("investor account missing: %v", err)
	}
	if acc.Balance != 50000 {
		t.Fatalf("expected remaining balance 50000, got %d", acc.Balance)
	}
}

func TestInvestmentHandler_Buy_QuoteFailure(t *testing.T) {
	f := newInvestmentFixture(t)
	f.seedInvestor(t, 100000)
	f.quotes.EXPECT().
		Quote(gomock.Any(), "NIFTYBEES").
		Return(decimal.Zero, domain.ErrQuoteFailed)

	body, _ := json.Marshal(dto.BuyUnitsRequest{
		FundSymbol: "NIFTYBEES",
		Amount:     50000,
	})
	req := withCaller(httptest.NewRequest(http.MethodPost, "/investments", bytes.NewReader(body)), "asha")
	rec := httptest.NewRecorder()

	f.handler.Buy(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}

	acc, err := f.accounts.GetByOwner(context.Background(), "asha")
	if err != nil {
		t.Fatalf("investor account missing: %v", err)
	}
	if acc.Balance != 100000 {
		t.Fatalf("quote failure must leave the balance untouched, got %d", acc.Balance)
	}
}

func TestInvestmentHandler_Buy_InsufficientFunds(t *testing.T) {
	f := newInvestmentFixture(t)
	f.seedInvestor(t, 1000)
	f.quotes.EXPECT().
		Quote(gomock.Any(), "NIFTYBEES").
		Return(decimal.RequireFromString("250.50"), nil)

	body, _ := json.Marshal(dto.BuyUnitsRequest{
		FundSymbol: "NIFTYBEES",
		Amount:     50000,
	})
	req := withCaller(httptest.NewRequest(http.MethodPost, "/investments", bytes.NewReader(body)), "asha")
	rec := httptest.NewRecorder()

	f.handler.Buy(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInvestmentHandler_Settle_Success(t *testing.T) {
	f := newInvestmentFixture(t)
	f.seedInvestor(t, 100000)
	f.quotes.EXPECT().
		Quote(gomock.Any(), "NIFTYBEES").
		Return(decimal.RequireFromString("100"), nil)

	body, _ := json.Marshal(dto.BuyUnitsRequest{
		FundSymbol: "NIFTYBEES",
		Amount:     10000,
	})
	buyReq := withCaller(httptest.NewRequest(http.MethodPost, "/investments", bytes.NewReader(body)), "asha")
	buyRec := httptest.NewRecorder()
	f.handler.Buy(buyRec, buyReq)

	var purchase dto.PurchaseResponse
	if err := json.Unmarshal(buyRec.Body.Bytes(), &purchase); err != nil {
		t.Fatalf("failed to decode purchase: %v", err)
	}

	req := withCaller(httptest.NewRequest(http.MethodPost, "/investments/"+purchase.Record.ID+"/settle", nil), "asha")
	req = withURLParam(req, "id", purchase.Record.ID)
	rec := httptest.NewRecorder()

	f.handler.Settle(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInvestmentHandler_Settle_UnknownRecord(t *testing.T) {
	f := newInvestmentFixture(t)

	req := withCaller(httptest.NewRequest(http.MethodPost, "/investments/missing/settle", nil), "asha")
	req = withURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	f.handler.Settle(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
