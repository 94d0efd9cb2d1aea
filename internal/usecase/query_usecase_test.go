package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
	"github.com/gramdhan/ledger/internal/usecase/mocks"
)

type queryFixture struct {
	accounts *mocks.MockAccountRepository
	records  *mocks.MockTransactionRepository
	groups   *mocks.MockGroupRepository
	cache    *mocks.MockCache
	query    *usecase.QueryUseCase
}

func newQueryFixture() *queryFixture {
	accounts := mocks.NewMockAccountRepository()
	records := mocks.NewMockTransactionRepository()
	groups := mocks.NewMockGroupRepository()
	cache := mocks.NewMockCache()

	return &queryFixture{
		accounts: accounts,
		records:  records,
		groups:   groups,
		cache:    cache,
		query:    usecase.NewQueryUseCase(accounts, records, groups, cache, zerolog.Nop()),
	}
}

func (f *queryFixture) appendRecord(t *testing.T, rec *domain.TransactionRecord) {
	t.Helper()
	if err := f.records.Append(context.Background(), nil, rec); err != nil {
		t.Fatalf("append record: %v", err)
	}
}

func TestQueryUseCase_GetBalance(t *testing.T) {
	f := newQueryFixture()
	f.accounts.Seed(&domain.Account{
		ID:      "acc-1",
		OwnerID: "asha",
		Balance: 73000,
		Status:  domain.AccountStatusActive,
	})

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := monthStart.Add(-48 * time.Hour)

	// This month: +50000 deposit, -20000 send. Last month's movement must
	// not count.
	f.appendRecord(t, &domain.TransactionRecord{
		ID: "rec-1", AccountID: "acc-1",
		Direction: domain.DirectionCredit, Kind: domain.KindDeposit,
		Amount: 50000, Status: domain.StatusCompleted,
		CorrelationID: "c-1", Timestamp: now.Add(-time.Hour),
	})
	f.appendRecord(t, &domain.TransactionRecord{
		ID: "rec-2", AccountID: "acc-1",
		Direction: domain.DirectionDebit, Kind: domain.KindSend,
		Amount: 20000, Status: domain.StatusCompleted,
		CorrelationID: "c-2", Timestamp: now.Add(-time.Minute),
	})
	f.appendRecord(t, &domain.TransactionRecord{
		ID: "rec-3", AccountID: "acc-1",
		Direction: domain.DirectionCredit, Kind: domain.KindDeposit,
		Amount: 99999, Status: domain.StatusCompleted,
		CorrelationID: "c-3", Timestamp: lastMonth,
	})
	// Pending records never count toward the monthly delta.
	f.appendRecord(t, &domain.TransactionRecord{
		ID: "rec-4", AccountID: "acc-1",
		Direction: domain.DirectionDebit, Kind: domain.KindContribution,
		Amount: 5000, Status: domain.StatusPending,
		CorrelationID: "c-4", Timestamp: now.Add(-time.Minute),
	})

	summary, err := f.query.GetBalance(context.Background(), "asha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Balance != 73000 {
		t.Errorf("expected balance 73000, got %d", summary.Balance)
	}
	if !summary.MonthlyChange.IsPositive || summary.MonthlyChange.Amount != 30000 {
		t.Errorf("expected +30000 monthly change, got %+v", summary.MonthlyChange)
	}
}

func TestQueryUseCase_GetBalance_NegativeChange(t *testing.T) {
	f := newQueryFixture()
	f.accounts.Seed(&domain.Account{
		ID:      "acc-1",
		OwnerID: "asha",
		Balance: 1000,
		Status:  domain.AccountStatusActive,
	})

	f.appendRecord(t, &domain.TransactionRecord{
		ID: "rec-1", AccountID: "acc-1",
		Direction: domain.DirectionDebit, Kind: domain.KindSend,
		Amount: 40000, Status: domain.StatusCompleted,
		CorrelationID: "c-1", Timestamp: time.Now().UTC().Add(-time.Hour),
	})

	summary, err := f.query.GetBalance(context.Background(), "asha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.MonthlyChange.IsPositive || summary.MonthlyChange.Amount != 40000 {
		t.Errorf("expected -40000 monthly change, got %+v", summary.MonthlyChange)
	}
}

func TestQueryUseCase_ListRecentTransactions(t *testing.T) {
	f := newQueryFixture()
	f.accounts.Seed(&domain.Account{
		ID:      "acc-1",
		OwnerID: "asha",
		Status:  domain.AccountStatusActive,
	})

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		status := domain.StatusCompleted
		if i == 4 {
			status = domain.StatusPending
		}
		f.appendRecord(t, &domain.TransactionRecord{
			ID: "rec-" + string(rune('a'+i)), AccountID: "acc-1",
			Direction: domain.DirectionCredit, Kind: domain.KindDeposit,
			Amount: 1000, Status: status,
			CorrelationID: "c-" + string(rune('a'+i)),
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		})
	}

	page, err := f.query.ListRecentTransactions(context.Background(), "asha", 3, time.Time{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(page.Transactions))
	}
	if page.PendingCount != 1 {
		t.Errorf("expected 1 pending, got %d", page.PendingCount)
	}
	for i := 1; i < len(page.Transactions); i++ {
		if page.Transactions[i].Timestamp.After(page.Transactions[i-1].Timestamp) {
			t.Error("transactions not ordered newest first")
		}
	}
	if page.NextBefore.IsZero() {
		t.Fatal("expected a next-page cursor")
	}

	rest, err := f.query.ListRecentTransactions(context.Background(), "asha", 3, page.NextBefore, page.NextBeforeID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest.Transactions) != 2 {
		t.Errorf("expected 2 remaining transactions, got %d", len(rest.Transactions))
	}
	for _, r := range rest.Transactions {
		if !r.Timestamp.Before(page.NextBefore) {
			t.Error("cursor page returned records newer than the cursor")
		}
	}
}

func TestQueryUseCase_ListRecentTransactions_SharedTimestamp(t *testing.T) {
	f := newQueryFixture()
	f.accounts.Seed(&domain.Account{
		ID:      "acc-1",
		OwnerID: "asha",
		Status:  domain.AccountStatusActive,
	})

	// Three records written at the same instant, as batched deposits are.
	ts := time.Now().UTC().Add(-time.Hour)
	for _, id := range []string{"rec-a", "rec-b", "rec-c"} {
		f.appendRecord(t, &domain.TransactionRecord{
			ID: id, AccountID: "acc-1",
			Direction: domain.DirectionCredit, Kind: domain.KindDeposit,
			Amount: 1000, Status: domain.StatusCompleted,
			CorrelationID: "c-" + id, Timestamp: ts,
		})
	}

	first, err := f.query.ListRecentTransactions(context.Background(), "asha", 2, time.Time{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Transactions) != 2 {
		t.Fatalf("expected 2 transactions on the first page, got %d", len(first.Transactions))
	}

	second, err := f.query.ListRecentTransactions(context.Background(), "asha", 2, first.NextBefore, first.NextBeforeID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Transactions) != 1 {
		t.Fatalf("expected the remaining record on the second page, got %d", len(second.Transactions))
	}

	seen := map[string]int{}
	for _, r := range append(first.Transactions, second.Transactions...) {
		seen[r.ID]++
	}
	for _, id := range []string{"rec-a", "rec-b", "rec-c"} {
		if seen[id] != 1 {
			t.Errorf("expected %s exactly once across pages, got %d", id, seen[id])
		}
	}
}

func TestQueryUseCase_GetGroupSummary(t *testing.T) {
	f := newQueryFixture()
	f.groups.Create(context.Background(), &domain.SavingsGroup{
		ID:               "grp-1",
		Name:             "Mahila Bachat Gat",
		Policy:           domain.ContributionPolicy{Kind: domain.PolicyFixed, Amount: 10000},
		MeetingFrequency: "weekly",
		TotalSaved:       250000,
		InterestRate:     decimal.NewFromFloat(2.5),
		Status:           domain.GroupStatusActive,
		Members: []domain.GroupMember{
			{UserID: "asha", TotalContributed: 125000, Status: domain.MemberStatusActive},
			{UserID: "binod", TotalContributed: 125000, Status: domain.MemberStatusActive},
		},
	})

	summary, err := f.query.GetGroupSummary(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.MemberCount != 2 {
		t.Errorf("expected 2 members, got %d", summary.MemberCount)
	}
	if summary.TotalSaved != 250000 {
		t.Errorf("expected total 250000, got %d", summary.TotalSaved)
	}
	if summary.Contribution != "₹100.00 weekly" {
		t.Errorf("unexpected contribution text: %q", summary.Contribution)
	}
	if summary.InterestRate != "2.50" {
		t.Errorf("unexpected interest rate: %q", summary.InterestRate)
	}

	// Second read is served from cache even if the store changes.
	f.groups.ApplyContribution(context.Background(), nil, "grp-1", "asha", 10000, time.Now().UTC())
	cached, err := f.query.GetGroupSummary(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached.TotalSaved != 250000 {
		t.Errorf("expected cached total 250000, got %d", cached.TotalSaved)
	}
}

func TestFormatPolicy(t *testing.T) {
	fixed := domain.ContributionPolicy{Kind: domain.PolicyFixed, Amount: 10050}
	if got := usecase.FormatPolicy(fixed, "weekly"); got != "₹100.50 weekly" {
		t.Errorf("unexpected fixed policy text: %q", got)
	}

	variable := domain.ContributionPolicy{Kind: domain.PolicyVariable, Min: 5000, Max: 20000}
	if got := usecase.FormatPolicy(variable, "monthly"); got != "₹50.00-₹200.00 monthly" {
		t.Errorf("unexpected variable policy text: %q", got)
	}
}

func TestFormatPaise(t *testing.T) {
	cases := map[int64]string{
		0:      "₹0.00",
		5:      "₹0.05",
		100:    "₹1.00",
		123456: "₹1234.56",
	}
	for paise, want := range cases {
		if got := usecase.FormatPaise(paise); got != want {
			t.Errorf("FormatPaise(%d) = %q, want %q", paise, got, want)
		}
	}
}
