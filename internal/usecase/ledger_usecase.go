package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/infrastructure/metrics"
)

// LedgerUseCase is the ledger engine: every value-moving operation runs
// as one atomic unit spanning exactly the accounts and log entries it
// touches, never produces a negative balance, and leaves a correctly
// paired audit trail.
type LedgerUseCase struct {
	txManager TransactionManager
	accounts  AccountRepository
	records   TransactionRepository
	outbox    OutboxRepository
	groups    GroupLedger
	wallets   WalletAllocator
	authz     AuthorizationGate
	idGen     IDGenerator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	accounts AccountRepository,
	records TransactionRepository,
	outbox OutboxRepository,
	groups GroupLedger,
	wallets WalletAllocator,
	authz AuthorizationGate,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager: txManager,
		accounts:  accounts,
		records:   records,
		outbox:    outbox,
		groups:    groups,
		wallets:   wallets,
		authz:     authz,
		idGen:     idGen,
		metrics:   m,
		logger:    logger,
	}
}

// DepositInput represents input for a deposit.
type DepositInput struct {
	OwnerID       string
	DisplayName   string
	Amount        int64
	Method        string
	CorrelationID string
}

// TransferInput represents input for a peer-to-peer transfer. The
// recipient is resolved by wallet address and display name together;
// both must match.
type TransferInput struct {
	SenderOwnerID   string
	RecipientWallet string
	RecipientName   string
	Amount          int64
	CorrelationID   string
}

// TransferResult carries both sides of a completed transfer.
type TransferResult struct {
	CorrelationID string
	Send          *domain.TransactionRecord
	Receive       *domain.TransactionRecord
}

// ContributeInput represents input for a savings-group contribution.
type ContributeInput struct {
	UserID        string
	GroupID       string
	Amount        int64
	CorrelationID string
}

// Deposit credits the owner's account, creating it on first use. The
// balance adjustment and the log entry commit together or not at all.
func (uc *LedgerUseCase) Deposit(ctx context.Context, input DepositInput) (*domain.TransactionRecord, error) {
	start := time.Now()
	record, err := uc.deposit(ctx, input)
	uc.observe("deposit", start, err)
	return record, err
}

func (uc *LedgerUseCase) deposit(ctx context.Context, input DepositInput) (*domain.TransactionRecord, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := uc.authorize(ctx, input.OwnerID, ActionDeposit); err != nil {
		return nil, err
	}

	if input.CorrelationID == "" {
		input.CorrelationID = uc.idGen.Generate()
	} else if prior, err := uc.completedRecord(ctx, input.CorrelationID, domain.KindDeposit); err != nil {
		return nil, err
	} else if prior != nil {
		return prior, nil
	}

	account, created, err := uc.accounts.GetOrCreateByOwner(ctx, input.OwnerID, input.DisplayName, uc.wallets)
	if err != nil {
		return nil, err
	}
	if created && uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
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

		updated, err := uc.accounts.CompareAndAdjust(ctx, tx, fresh.ID, input.Amount, fresh.Version, now)
		if err != nil {
			return err
		}

		record = &domain.TransactionRecord{
			ID:            uc.idGen.Generate(),
			AccountID:     fresh.ID,
			Direction:     domain.DirectionCredit,
			Kind:          domain.KindDeposit,
			Amount:        input.Amount,
			Counterparty:  input.Method,
			Status:        domain.StatusCompleted,
			CorrelationID: input.CorrelationID,
			Timestamp:     now,
		}
		if err := uc.records.Append(ctx, tx, record); err != nil {
			return err
		}

		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   fresh.ID,
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeDepositCompleted,
			Payload: map[string]any{
				"record_id":  record.ID,
				"account_id": fresh.ID,
				"owner_id":   input.OwnerID,
				"amount":     input.Amount,
				"method":     input.Method,
			},
			CreatedAt: now,
		}
		if err := uc.outbox.Create(ctx, tx, event); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		uc.logger.Info().
			Str("account_id", updated.ID).
			Int64("amount", input.Amount).
			Str("correlation_id", input.CorrelationID).
			Msg("deposit completed")

		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.DepositsCompleted.Inc()
		uc.metrics.MovedAmount.WithLabelValues("deposit").Observe(float64(input.Amount))
	}

	return record, nil
}

// Transfer moves amount from the sender to the recipient resolved by
// (wallet address, display name). Both balance adjustments and both log
// entries commit together or none do.
func (uc *LedgerUseCase) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	start := time.Now()
	result, err := uc.transfer(ctx, input)
	uc.observe("transfer", start, err)
	return result, err
}

func (uc *LedgerUseCase) transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateDisplayName(input.RecipientName); err != nil {
		return nil, err
	}
	if err := uc.authorize(ctx, input.SenderOwnerID, ActionTransfer); err != nil {
		return nil, err
	}

	sender, err := uc.accounts.GetByOwner(ctx, input.SenderOwnerID)
	if err != nil {
		return nil, err
	}

	recipient, err := uc.resolveRecipient(ctx, input.RecipientWallet, input.RecipientName)
	if err != nil {
		return nil, err
	}
	if recipient.ID == sender.ID {
		return nil, domain.ErrSameAccount
	}

	if input.CorrelationID == "" {
		input.CorrelationID = uc.idGen.Generate()
	} else if prior, err := uc.priorTransfer(ctx, input.CorrelationID); err != nil {
		return nil, err
	} else if prior != nil {
		return prior, nil
	}

	var result *TransferResult
	err = uc.withConflictRetry(ctx, func() error {
		res, err := uc.transferOnce(ctx, sender.ID, recipient.ID, recipient.DisplayName, input)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransfersCompleted.Inc()
		uc.metrics.MovedAmount.WithLabelValues("transfer").Observe(float64(input.Amount))
	}

	return result, nil
}

// transferOnce performs one attempt of the transfer atomic unit.
func (uc *LedgerUseCase) transferOnce(ctx context.Context, senderID, recipientID, recipientName string, input TransferInput) (*TransferResult, error) {
	sender, err := uc.accounts.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	recipient, err := uc.accounts.GetByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	// Apply adjustments in account-ID order so two transfers moving
	// money in opposite directions between the same pair never wait on
	// each other's row locks in a cycle.
	adjustments := []struct {
		account *domain.Account
		delta   int64
	}{
		{sender, -input.Amount},
		{recipient, input.Amount},
	}
	if adjustments[0].account.ID > adjustments[1].account.ID {
		adjustments[0], adjustments[1] = adjustments[1], adjustments[0]
	}

	for _, adj := range adjustments {
		if _, err := uc.accounts.CompareAndAdjust(ctx, tx, adj.account.ID, adj.delta, adj.account.Version, now); err != nil {
			return nil, err
		}
	}

	send := &domain.TransactionRecord{
		ID:            uc.idGen.Generate(),
		AccountID:     sender.ID,
		Direction:     domain.DirectionDebit,
		Kind:          domain.KindSend,
		Amount:        input.Amount,
		Counterparty:  recipientName,
		Status:        domain.StatusCompleted,
		CorrelationID: input.CorrelationID,
		Timestamp:     now,
	}
	receive := &domain.TransactionRecord{
		ID:            uc.idGen.Generate(),
		AccountID:     recipient.ID,
		Direction:     domain.DirectionCredit,
		Kind:          domain.KindReceive,
		Amount:        input.Amount,
		Counterparty:  sender.DisplayName,
		Status:        domain.StatusCompleted,
		CorrelationID: input.CorrelationID,
		Timestamp:     now,
	}
	if err := uc.records.Append(ctx, tx, send); err != nil {
		return nil, err
	}
	if err := uc.records.Append(ctx, tx, receive); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   input.CorrelationID,
		AggregateType: domain.AggregateTypeTransfer,
		EventType:     domain.EventTypeTransferCompleted,
		Payload: map[string]any{
			"correlation_id":       input.CorrelationID,
			"sender_account_id":    sender.ID,
			"recipient_account_id": recipient.ID,
			"amount":               input.Amount,
		},
		CreatedAt: now,
	}
	if err := uc.outbox.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("sender_account_id", sender.ID).
		Str("recipient_account_id", recipient.ID).
		Int64("amount", input.Amount).
		Str("correlation_id", input.CorrelationID).
		Msg("transfer completed")

	return &TransferResult{
		CorrelationID: input.CorrelationID,
		Send:          send,
		Receive:       receive,
	}, nil
}

// GroupContribute debits the contributing user and credits the group
// aggregate. The debit and its log entry commit as one unit; if the
// group credit then fails, the debit is reversed via a compensating
// credit so the user is never left debited with no group credit.
func (uc *LedgerUseCase) GroupContribute(ctx context.Context, input ContributeInput) (*domain.TransactionRecord, error) {
	start := time.Now()
	record, err := uc.groupContribute(ctx, input)
	uc.observe("contribution", start, err)
	return record, err
}

func (uc *LedgerUseCase) groupContribute(ctx context.Context, input ContributeInput) (*domain.TransactionRecord, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	group, err := uc.groups.Get(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}
	if err := group.CanAccept(input.Amount); err != nil {
		return nil, err
	}
	member := group.Member(input.UserID)
	if member == nil || member.Status != domain.MemberStatusActive {
		return nil, domain.ErrNotGroupMember
	}

	if err := uc.authorize(ctx, input.UserID, ActionContribute); err != nil {
		return nil, err
	}

	if input.CorrelationID == "" {
		input.CorrelationID = uc.idGen.Generate()
	} else if prior, err := uc.priorContribution(ctx, input.CorrelationID); err != nil {
		return nil, err
	} else if prior != nil {
		return prior, nil
	}

	account, err := uc.accounts.GetByOwner(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	debit, err := uc.debitForGroup(ctx, account.ID, group, input)
	if err != nil {
		return nil, err
	}

	if err := uc.groups.RecordContribution(ctx, input.GroupID, input.UserID, input.Amount); err != nil {
		uc.compensateContribution(ctx, account.ID, group, debit, input, err)
		return nil, fmt.Errorf("group credit failed, debit reversed: %w", err)
	}

	if err := uc.finalizeRecord(ctx, debit.ID, domain.StatusCompleted); err != nil {
		// Money is in place on both sides; only the status flip failed.
		// The record stays pending and is picked up by reconciliation.
		uc.logger.Error().Err(err).
			Str("record_id", debit.ID).
			Msg("contribution recorded but status update failed")
	} else {
		debit.Status = domain.StatusCompleted
	}

	uc.logger.Info().
		Str("group_id", input.GroupID).
		Str("user_id", input.UserID).
		Int64("amount", input.Amount).
		Str("correlation_id", input.CorrelationID).
		Msg("group contribution completed")

	if uc.metrics != nil {
		uc.metrics.ContributionsRecorded.Inc()
		uc.metrics.MovedAmount.WithLabelValues("contribution").Observe(float64(input.Amount))
	}

	return debit, nil
}

// debitForGroup runs the contribution's debit atomic unit: balance
// adjustment plus a pending contribution record.
func (uc *LedgerUseCase) debitForGroup(ctx context.Context, accountID string, group *domain.SavingsGroup, input ContributeInput) (*domain.TransactionRecord, error) {
	var record *domain.TransactionRecord
	err := uc.withConflictRetry(ctx, func() error {
		fresh, err := uc.accounts.GetByID(ctx, accountID)
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
			Kind:          domain.KindContribution,
			Amount:        input.Amount,
			Counterparty:  group.Name,
			Status:        domain.StatusPending,
			CorrelationID: input.CorrelationID,
			Timestamp:     now,
		}
		if err := uc.records.Append(ctx, tx, record); err != nil {
			return err
		}

		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   group.ID,
			AggregateType: domain.AggregateTypeGroup,
			EventType:     domain.EventTypeContributionRecorded,
			Payload: map[string]any{
				"correlation_id": input.CorrelationID,
				"group_id":       group.ID,
				"user_id":        input.UserID,
				"amount":         input.Amount,
			},
			CreatedAt: now,
		}
		if err := uc.outbox.Create(ctx, tx, event); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// compensateContribution reverses a committed contribution debit after
// the group credit failed. The reversal credit and the original debit
// share a correlation ID and both carry the failed status, documenting
// the user-visible failure.
func (uc *LedgerUseCase) compensateContribution(ctx context.Context, accountID string, group *domain.SavingsGroup, debit *domain.TransactionRecord, input ContributeInput, cause error) {
	err := uc.withConflictRetry(ctx, func() error {
		fresh, err := uc.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}

		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		now := time.Now().UTC()

		if _, err := uc.accounts.CompareAndAdjust(ctx, tx, fresh.ID, input.Amount, fresh.Version, now); err != nil {
			return err
		}

		reversal := &domain.TransactionRecord{
			ID:            uc.idGen.Generate(),
			AccountID:     fresh.ID,
			Direction:     domain.DirectionCredit,
			Kind:          domain.KindContribution,
			Amount:        input.Amount,
			Counterparty:  group.Name,
			Status:        domain.StatusFailed,
			CorrelationID: input.CorrelationID,
			Timestamp:     now,
		}
		if err := uc.records.Append(ctx, tx, reversal); err != nil {
			return err
		}

		if err := uc.records.UpdateStatus(ctx, tx, debit.ID, domain.StatusFailed, now); err != nil {
			return err
		}

		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   group.ID,
			AggregateType: domain.AggregateTypeGroup,
			EventType:     domain.EventTypeContributionCompensated,
			Payload: map[string]any{
				"correlation_id": input.CorrelationID,
				"group_id":       group.ID,
				"user_id":        input.UserID,
				"amount":         input.Amount,
				"reason":         cause.Error(),
			},
			CreatedAt: now,
		}
		if err := uc.outbox.Create(ctx, tx, event); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		// The debit stands with a pending record; reconciliation has the
		// correlation ID to finish the reversal.
		uc.logger.Error().Err(err).
			Str("correlation_id", input.CorrelationID).
			Str("group_id", group.ID).
			Msg("contribution compensation failed")
		return
	}

	debit.Status = domain.StatusFailed

	if uc.metrics != nil {
		uc.metrics.ContributionsReversed.Inc()
	}

	uc.logger.Warn().
		Str("correlation_id", input.CorrelationID).
		Str("group_id", group.ID).
		Int64("amount", input.Amount).
		Msg("contribution debit reversed")
}

// finalizeRecord flips a pending record to a terminal status in its own
// transaction.
func (uc *LedgerUseCase) finalizeRecord(ctx context.Context, recordID string, status domain.Status) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if err := uc.records.UpdateStatus(ctx, tx, recordID, status, now); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// resolveRecipient resolves an account by wallet address and verifies
// the display name matches. The name check is a deliberate secondary
// factor against typos and address guesses; any mismatch is
// ErrRecipientNotFound, never a more specific hint.
func (uc *LedgerUseCase) resolveRecipient(ctx context.Context, walletAddress, displayName string) (*domain.Account, error) {
	account, err := uc.accounts.GetByWallet(ctx, walletAddress)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrRecipientNotFound
		}
		return nil, err
	}

	if domain.NormalizeDisplayName(account.DisplayName) != domain.NormalizeDisplayName(displayName) {
		return nil, domain.ErrRecipientNotFound
	}

	return account, nil
}

// completedRecord returns the completed record for a correlation ID and
// kind, if one exists. Replays short-circuit here without re-executing.
func (uc *LedgerUseCase) completedRecord(ctx context.Context, correlationID string, kind domain.Kind) (*domain.TransactionRecord, error) {
	records, err := uc.records.GetByCorrelation(ctx, correlationID)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if r.Kind == kind && r.Status == domain.StatusCompleted {
			return r, nil
		}
	}

	return nil, nil
}

// priorContribution returns the earlier contribution debit for a
// correlation ID, if any. A completed debit is a finished replay. A
// pending one means the money already left the account (the group
// credit ran but the status flip did not, or a compensation is still
// owed), so re-executing would double-debit and trip the log's dedup
// constraint; the replay returns it and reconciliation settles the
// status.
func (uc *LedgerUseCase) priorContribution(ctx context.Context, correlationID string) (*domain.TransactionRecord, error) {
	records, err := uc.records.GetByCorrelation(ctx, correlationID)
	if err != nil {
		return nil, err
	}

	var pending *domain.TransactionRecord
	for _, r := range records {
		if r.Kind != domain.KindContribution || r.Direction != domain.DirectionDebit {
			continue
		}
		switch r.Status {
		case domain.StatusCompleted:
			return r, nil
		case domain.StatusPending:
			pending = r
		}
	}

	return pending, nil
}

// priorTransfer reconstructs the result of an already-completed transfer
// for the same correlation ID.
func (uc *LedgerUseCase) priorTransfer(ctx context.Context, correlationID string) (*TransferResult, error) {
	records, err := uc.records.GetByCorrelation(ctx, correlationID)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{CorrelationID: correlationID}
	for _, r := range records {
		if r.Status != domain.StatusCompleted {
			continue
		}
		switch r.Kind {
		case domain.KindSend:
			result.Send = r
		case domain.KindReceive:
			result.Receive = r
		}
	}

	if result.Send != nil && result.Receive != nil {
		return result, nil
	}

	return nil, nil
}

func (uc *LedgerUseCase) authorize(ctx context.Context, callerID, action string) error {
	ok, err := uc.authz.Authorized(ctx, callerID, action)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

func (uc *LedgerUseCase) withConflictRetry(ctx context.Context, attempt func() error) error {
	return withConflictRetry(ctx, uc.logger, uc.metrics, attempt)
}

// observe records an operation's duration and, on failure, its error
// class.
func (uc *LedgerUseCase) observe(op string, start time.Time, err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.OperationErrors.WithLabelValues(op, errorClass(err)).Inc()
	}
}

// errorClass folds errors into a low-cardinality metric label.
func errorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountOutsidePolicy):
		return "invalid_amount"
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrRecipientNotFound),
		errors.Is(err, domain.ErrGroupNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "aborted"
	default:
		return "internal"
	}
}

// withConflictRetry runs an atomic unit, retrying a bounded number of
// times with exponential backoff when it loses an optimistic-concurrency
// race. Any other failure is surfaced immediately. The caller-supplied
// deadline aborts the wait between attempts.
func withConflictRetry(ctx context.Context, logger zerolog.Logger, m *metrics.Metrics, attempt func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = adjustRetryInterval
	b.MaxInterval = adjustRetryMaxInterval

	attempts := 0

	return backoff.Retry(func() error {
		err := attempt()
		if err == nil {
			return nil
		}

		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return backoff.Permanent(err)
		}

		attempts++
		if attempts >= maxAdjustAttempts {
			return backoff.Permanent(err)
		}

		if m != nil {
			m.ConflictRetries.Inc()
		}

		logger.Warn().
			Int("attempt", attempts).
			Msg("optimistic concurrency conflict, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}
