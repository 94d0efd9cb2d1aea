package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
)

// Postgres error codes mapped onto the optimistic-concurrency failure.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrUniqueViolation      = "23505"
	pgErrForeignKeyViolation  = "23503"
)

const accountColumns = `id, owner_id, display_name, wallet_address, balance, version, status, created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByOwner retrieves the single account held by an owner.
func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1`, ownerID)
	return scanAccount(row)
}

// GetByWallet resolves an account by wallet address.
func (r *AccountRepository) GetByWallet(ctx context.Context, walletAddress string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE wallet_address = $1`, walletAddress)
	return scanAccount(row)
}

// GetOrCreateByOwner returns the owner's account, creating it with a
// zero balance on first use. The unique constraint on owner_id makes
// concurrent first deposits converge on one row; the loser of the
// insert race reads the winner's account and reports created=false.
func (r *AccountRepository) GetOrCreateByOwner(ctx context.Context, ownerID, displayName string, alloc usecase.WalletAllocator) (*domain.Account, bool, error) {
	account, err := r.GetByOwner(ctx, ownerID)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, false, err
	}

	address, err := alloc.AllocateWalletAddress(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	if err := domain.ValidateWalletAddress(address); err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	created := false
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, owner_id, display_name, wallet_address, balance, version, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5, $6, $6)
		ON CONFLICT (owner_id) DO NOTHING`,
		ulidString(), ownerID, displayName, address, domain.AccountStatusActive, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.Code != pgErrUniqueViolation {
			return nil, false, err
		}
	} else {
		created = tag.RowsAffected() == 1
	}

	account, err = r.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	return account, created, nil
}

// CompareAndAdjust applies balance += delta guarded by the version and a
// non-negative result, all in one statement. When the guard fails, a
// diagnostic read distinguishes a lost race from a real shortfall.
func (r *AccountRepository) CompareAndAdjust(ctx context.Context, tx usecase.Transaction, id string, delta int64, expectedVersion int64, now time.Time) (*domain.Account, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $3 AND status = $5 AND balance + $2 >= 0
		RETURNING `+accountColumns,
		id, delta, expectedVersion, now, domain.AccountStatusActive)

	account, err := scanAccount(row)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, mapConcurrencyError(err)
	}

	return nil, r.diagnoseAdjustFailure(ctx, pgxTx, id, delta, expectedVersion)
}

// diagnoseAdjustFailure reads the row the guarded update refused to
// touch and reports which guard failed.
func (r *AccountRepository) diagnoseAdjustFailure(ctx context.Context, tx pgx.Tx, id string, delta int64, expectedVersion int64) error {
	var (
		balance int64
		version int64
		status  string
	)
	err := tx.QueryRow(ctx, `SELECT balance, version, status FROM accounts WHERE id = $1`, id).
		Scan(&balance, &version, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		return mapConcurrencyError(err)
	}

	switch {
	case domain.AccountStatus(status) != domain.AccountStatusActive:
		return domain.ErrAccountClosed
	case version != expectedVersion:
		return domain.ErrConcurrencyConflict
	case balance+delta < 0:
		return domain.ErrInsufficientFunds
	default:
		return domain.ErrConcurrencyConflict
	}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.ID,
		&acc.OwnerID,
		&acc.DisplayName,
		&acc.WalletAddress,
		&acc.Balance,
		&acc.Version,
		&acc.Status,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// mapConcurrencyError folds serialization failures and deadlocks into
// the retryable domain error.
func mapConcurrencyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure:
			return domain.ErrConcurrencyConflict
		}
	}
	return err
}
