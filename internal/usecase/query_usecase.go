package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gramdhan/ledger/internal/domain"
)

// QueryUseCase exposes read-only projections over committed state for
// the presentation layer.
type QueryUseCase struct {
	accounts AccountRepository
	records  TransactionRepository
	groups   GroupRepository
	cache    Cache
	logger   zerolog.Logger
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(
	accounts AccountRepository,
	records TransactionRepository,
	groups GroupRepository,
	cache Cache,
	logger zerolog.Logger,
) *QueryUseCase {
	return &QueryUseCase{
		accounts: accounts,
		records:  records,
		groups:   groups,
		cache:    cache,
		logger:   logger,
	}
}

// MonthlyChange is the net movement since the first of the month.
type MonthlyChange struct {
	Amount     int64
	IsPositive bool
}

// BalanceSummary is the balance projection for one owner.
type BalanceSummary struct {
	Balance       int64
	MonthlyChange MonthlyChange
}

// ActivityPage is one page of an account's recent transactions.
type ActivityPage struct {
	Transactions []*domain.TransactionRecord
	PendingCount int
	// NextBefore and NextBeforeID form the composite cursor for the next
	// page; both zero when exhausted. The ID component disambiguates
	// records sharing a timestamp at the page boundary.
	NextBefore   time.Time
	NextBeforeID string
}

// GroupSummary is the presentation projection of a savings group.
type GroupSummary struct {
	GroupID      string `json:"group_id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	MemberCount  int    `json:"member_count"`
	TotalSaved   int64  `json:"total_saved"`
	Contribution string `json:"contribution"`
	InterestRate string `json:"interest_rate"`
}

// GetBalance returns the owner's balance and the credit-minus-debit
// delta since the first of the current month.
func (uc *QueryUseCase) GetBalance(ctx context.Context, ownerID string) (*BalanceSummary, error) {
	account, err := uc.accounts.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	credits, err := uc.records.SumInRange(ctx, account.ID, monthStart, now.Add(time.Second), domain.DirectionCredit)
	if err != nil {
		return nil, err
	}
	debits, err := uc.records.SumInRange(ctx, account.ID, monthStart, now.Add(time.Second), domain.DirectionDebit)
	if err != nil {
		return nil, err
	}

	delta := credits - debits
	change := MonthlyChange{Amount: delta, IsPositive: delta >= 0}
	if delta < 0 {
		change.Amount = -delta
	}

	return &BalanceSummary{
		Balance:       account.Balance,
		MonthlyChange: change,
	}, nil
}

// ListRecentTransactions returns the owner's transactions newest first,
// restartable via the (before, beforeID) cursor, together with the
// count of records still pending.
func (uc *QueryUseCase) ListRecentTransactions(ctx context.Context, ownerID string, limit int, before time.Time, beforeID string) (*ActivityPage, error) {
	account, err := uc.accounts.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	limit = domain.ValidatePagination(limit)

	records, err := uc.records.ListRecent(ctx, account.ID, limit, before, beforeID)
	if err != nil {
		return nil, err
	}

	pending, err := uc.records.CountPending(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	page := &ActivityPage{
		Transactions: records,
		PendingCount: pending,
	}
	if len(records) == limit {
		last := records[len(records)-1]
		page.NextBefore = last.Timestamp
		page.NextBeforeID = last.ID
	}

	return page, nil
}

// GetGroupSummary returns the formatted group projection, cached for a
// short interval and invalidated on every contribution.
func (uc *QueryUseCase) GetGroupSummary(ctx context.Context, groupID string) (*GroupSummary, error) {
	key := groupSummaryCacheKey(groupID)

	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, key); err == nil && cached != nil {
			var summary GroupSummary
			if err := json.Unmarshal(cached, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	group, err := uc.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	summary := &GroupSummary{
		GroupID:      group.ID,
		Name:         group.Name,
		Status:       string(group.Status),
		MemberCount:  len(group.Members),
		TotalSaved:   group.TotalSaved,
		Contribution: FormatPolicy(group.Policy, group.MeetingFrequency),
		InterestRate: group.InterestRate.StringFixed(2),
	}

	if uc.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := uc.cache.Set(ctx, key, data, 5*time.Minute); err != nil {
				uc.logger.Warn().Err(err).Str("group_id", groupID).Msg("failed to cache group summary")
			}
		}
	}

	return summary, nil
}

// FormatPolicy renders a contribution policy for display: a single
// amount plus cadence for fixed policies, a min-max range plus cadence
// for variable ones.
func FormatPolicy(p domain.ContributionPolicy, cadence string) string {
	switch p.Kind {
	case domain.PolicyFixed:
		return fmt.Sprintf("%s %s", FormatPaise(p.Amount), cadence)
	case domain.PolicyVariable:
		return fmt.Sprintf("%s-%s %s", FormatPaise(p.Min), FormatPaise(p.Max), cadence)
	default:
		return cadence
	}
}

// FormatPaise renders an amount in paise as rupees, never rounding.
func FormatPaise(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
