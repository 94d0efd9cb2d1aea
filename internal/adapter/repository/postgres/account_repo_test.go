package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
)

var accountRows = []string{"id", "owner_id", "display_name", "wallet_address", "balance", "version", "status", "created_at", "updated_at"}

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	pool.ExpectBegin()
	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func TestAccountRepositoryCompareAndAdjust(t *testing.T) {
	now := time.Now().UTC()
	repo := NewAccountRepository(nil)

	t.Run("applies the guarded update", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginTx(t, pool)

		pool.ExpectQuery("UPDATE accounts").
			WithArgs("acc-1", int64(5000), int64(3), pgxmock.AnyArg(), domain.AccountStatusActive).
			WillReturnRows(pgxmock.NewRows(accountRows).
				AddRow("acc-1", "asha", "Asha Devi", "wallet:asha", int64(15000), int64(4), domain.AccountStatusActive, now, now))

		account, err := repo.CompareAndAdjust(context.Background(), tx, "acc-1", 5000, 3, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account.Balance != 15000 || account.Version != 4 {
			t.Errorf("unexpected account state: balance=%d version=%d", account.Balance, account.Version)
		}

		assertExpectations(t, pool)
	})

	t.Run("version mismatch is a concurrency conflict", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginTx(t, pool)

		pool.ExpectQuery("UPDATE accounts").
			WithArgs("acc-1", int64(5000), int64(3), pgxmock.AnyArg(), domain.AccountStatusActive).
			WillReturnRows(pgxmock.NewRows(accountRows))
		pool.ExpectQuery("SELECT balance, version, status").
			WithArgs("acc-1").
			WillReturnRows(pgxmock.NewRows([]string{"balance", "version", "status"}).
				AddRow(int64(10000), int64(7), "active"))

		_, err := repo.CompareAndAdjust(context.Background(), tx, "acc-1", 5000, 3, now)
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			t.Errorf("expected ErrConcurrencyConflict, got %v", err)
		}

		assertExpectations(t, pool)
	})

	t.Run("shortfall is insufficient funds", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginTx(t, pool)

		pool.ExpectQuery("UPDATE accounts").
			WithArgs("acc-1", int64(-50000), int64(3), pgxmock.AnyArg(), domain.AccountStatusActive).
			WillReturnRows(pgxmock.NewRows(accountRows))
		pool.ExpectQuery("SELECT balance, version, status").
			WithArgs("acc-1").
			WillReturnRows(pgxmock.NewRows([]string{"balance", "version", "status"}).
				AddRow(int64(10000), int64(3), "active"))

		_, err := repo.CompareAndAdjust(context.Background(), tx, "acc-1", -50000, 3, now)
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Errorf("expected ErrInsufficientFunds, got %v", err)
		}

		assertExpectations(t, pool)
	})

	t.Run("closed account", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginTx(t, pool)

		pool.ExpectQuery("UPDATE accounts").
			WithArgs("acc-1", int64(5000), int64(3), pgxmock.AnyArg(), domain.AccountStatusActive).
			WillReturnRows(pgxmock.NewRows(accountRows))
		pool.ExpectQuery("SELECT balance, version, status").
			WithArgs("acc-1").
			WillReturnRows(pgxmock.NewRows([]string{"balance", "version", "status"}).
				AddRow(int64(10000), int64(3), "closed"))

		_, err := repo.CompareAndAdjust(context.Background(), tx, "acc-1", 5000, 3, now)
		if !errors.Is(err, domain.ErrAccountClosed) {
			t.Errorf("expected ErrAccountClosed, got %v", err)
		}

		assertExpectations(t, pool)
	})

	t.Run("missing account", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginTx(t, pool)

		pool.ExpectQuery("UPDATE accounts").
			WithArgs("acc-missing", int64(5000), int64(0), pgxmock.AnyArg(), domain.AccountStatusActive).
			WillReturnRows(pgxmock.NewRows(accountRows))
		pool.ExpectQuery("SELECT balance, version, status").
			WithArgs("acc-missing").
			WillReturnRows(pgxmock.NewRows([]string{"balance", "version", "status"}))

		_, err := repo.CompareAndAdjust(context.Background(), tx, "acc-missing", 5000, 0, now)
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}

		assertExpectations(t, pool)
	})

	t.Run("serialization failure maps to concurrency conflict", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginTx(t, pool)

		pool.ExpectQuery("UPDATE accounts").
			WithArgs("acc-1", int64(5000), int64(3), pgxmock.AnyArg(), domain.AccountStatusActive).
			WillReturnError(&pgconn.PgError{Code: pgErrSerializationFailure})

		_, err := repo.CompareAndAdjust(context.Background(), tx, "acc-1", 5000, 3, now)
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			t.Errorf("expected ErrConcurrencyConflict, got %v", err)
		}

		assertExpectations(t, pool)
	})
}

func TestMapConcurrencyError(t *testing.T) {
	if err := mapConcurrencyError(&pgconn.PgError{Code: pgErrDeadlock}); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Errorf("expected deadlock to map to ErrConcurrencyConflict, got %v", err)
	}

	plain := errors.New("connection reset")
	if err := mapConcurrencyError(plain); !errors.Is(err, plain) {
		t.Errorf("expected unrelated error passed through, got %v", err)
	}
}
