package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/infrastructure/metrics"
)

// fundUnitPlaces is the precision fund units are held at. Rounding is
// always downward and always logged; the investor never receives more
// units than the quoted NAV covers.
const fundUnitPlaces = 4

// InvestmentUseCase handles mutual-fund purchases. The NAV feed is an
// opaque collaborator; the debit rides the same compare-and-adjust path
// as every other value movement.
type InvestmentUseCase struct {
	txManager TransactionManager
	accounts  AccountRepository
	records   TransactionRepository
	outbox    OutboxRepository
	quotes    QuoteFeed
	authz     AuthorizationGate
	idGen     IDGenerator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewInvestmentUseCase creates a new InvestmentUseCase.
func NewInvestmentUseCase(
	txManager TransactionManager,
	accounts AccountRepository,
	records TransactionRepository,
	outbox OutboxRepository,
	quotes QuoteFeed,
	authz AuthorizationGate,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *InvestmentUseCase {
	return &InvestmentUseCase{
		txManager: txManager,
		accounts:  accounts,
		records:   records,
		outbox:    outbox,
		quotes:    quotes,
		authz:     authz,
		idGen:     idGen,
		metrics:   m,
		logger:    logger,
	}
}

// BuyUnitsInput represents input for a fund purchase.
type BuyUnitsInput struct {
	OwnerID       string
	FundSymbol    string
	FundName      string
	Amount        int64
	CorrelationID string
}

// Purchase is the outcome of a fund purchase: the debit record plus the
// quoted NAV and the units bought at it.
type Purchase struct {
	Record *domain.TransactionRecord
	NAV    decimal.Decimal
	Units  decimal.Decimal
}

// BuyUnits quotes the fund's NAV, debits the investor and appends a
// pending withdraw record. The record completes at settlement. A quote
// failure leaves no state behind.
func (uc *InvestmentUseCase) BuyUnits(ctx context.Context, input BuyUnitsInput) (*Purchase, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := uc.authorize(ctx, input.OwnerID); err != nil {
		return nil, err
	}

	nav, err := uc.quotes.Quote(ctx, input.FundSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuoteFailed, err)
	}
	if !nav.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive NAV %s", domain.ErrQuoteFailed, nav)
	}

	if input.CorrelationID == "" {
		input.CorrelationID = uc.idGen.Generate()
	}

	// Rupee amount divided by NAV, rounded DOWN to fundUnitPlaces. The
	// rounding is explicit and logged; the remainder stays with the
	// investor's cash balance at the fund house, never silently dropped.
	rupees := decimal.NewFromInt(input.Amount).Div(decimal.NewFromInt(100))
	rawUnits := rupees.Div(nav)
	units := rawUnits.RoundDown(fundUnitPlaces)

	uc.logger.Info().
		Str("fund", input.FundSymbol).
		Str("nav", nav.String()).
		Str("raw_units", rawUnits.String()).
		Str("units", units.String()).
		Msg("fund units rounded down")

	account, err := uc.accounts.GetByOwner(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}

	var record *domain.TransactionRecord
	err = uc.withConflictRetry(ctx, func() error {
		fresh, err := uc.accounts.GetByID(ctx, account.ID)
		if err != nil {
			return err
		}

		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		now := time.Now().UTC()

		if _, err := uc.accounts.CompareAndAdjust(ctx, tx, fresh.ID, -input.Amount, fresh.Version, now); err != nil {
			return err
		}

		record = &domain.TransactionRecord{
			ID:            uc.idGen.Generate(),
			AccountID:     fresh.ID,
			Direction:     domain.DirectionDebit,
			Kind:          domain.KindWithdraw,
			Amount:        input.Amount,
			Counterparty:  input.FundName,
			Status:        domain.StatusPending,
			CorrelationID: input.CorrelationID,
			Timestamp:     now,
		}
		if err := uc.records.Append(ctx, tx, record); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PurchasesRecorded.Inc()
		uc.metrics.MovedAmount.WithLabelValues("investment").Observe(float64(input.Amount))
	}

	return &Purchase{Record: record, NAV: nav, Units: units}, nil
}

// SettlePurchase flips a pending purchase debit to completed once the
// fund house confirms allotment.
func (uc *InvestmentUseCase) SettlePurchase(ctx context.Context, recordID string) error {
	record, err := uc.records.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if record.Kind != domain.KindWithdraw {
		return domain.ErrMalformedRecord
	}
	if !record.CanTransitionTo(domain.StatusCompleted) {
		return domain.ErrRecordImmutable
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if err := uc.records.UpdateStatus(ctx, tx, recordID, domain.StatusCompleted, now); err != nil {
		return err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   record.AccountID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeInvestmentSettled,
		Payload: map[string]any{
			"record_id":  record.ID,
			"account_id": record.AccountID,
			"amount":     record.Amount,
		},
		CreatedAt: now,
	}
	if err := uc.outbox.Create(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.PurchasesSettled.Inc()
	}

	return nil
}

func (uc *InvestmentUseCase) authorize(ctx context.Context, callerID string) error {
	ok, err := uc.authz.Authorized(ctx, callerID, ActionInvest)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

// withConflictRetry mirrors the ledger engine's bounded retry policy.
func (uc *InvestmentUseCase) withConflictRetry(ctx context.Context, attempt func() error) error {
	return withConflictRetry(ctx, uc.logger, uc.metrics, attempt)
}
