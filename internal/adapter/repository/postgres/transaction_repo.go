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

const recordColumns = `id, account_id, direction, kind, amount, counterparty, status, correlation_id, created_at`

// TransactionRepository implements usecase.TransactionRepository over
// the append-only transaction_records table. Rows are only ever
// inserted or status-flipped pending to terminal; nothing is deleted.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Append inserts a new record within a transaction.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	pgxTx := tx.(*Tx).PgxTx()
	_, err := pgxTx.Exec(ctx, `
		INSERT INTO transaction_records (id, account_id, direction, kind, amount, counterparty, status, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.AccountID, record.Direction, record.Kind,
		record.Amount, record.Counterparty, record.Status,
		record.CorrelationID, record.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return domain.ErrDuplicateRecord
		}
		return mapConcurrencyError(err)
	}
	return nil
}

// GetByID retrieves a record by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM transaction_records WHERE id = $1`, id)
	return scanRecord(row)
}

// GetByCorrelation retrieves every record sharing a correlation ID.
func (r *TransactionRepository) GetByCorrelation(ctx context.Context, correlationID string) ([]*domain.TransactionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM transaction_records
		WHERE correlation_id = $1
		ORDER BY created_at`, correlationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListRecent returns records newest first, strictly older than the
// (before, beforeID) composite cursor when one is given. Comparing the
// row pair keeps records that share a created_at from being skipped
// across a page boundary.
func (r *TransactionRepository) ListRecent(ctx context.Context, accountID string, limit int, before time.Time, beforeID string) ([]*domain.TransactionRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if before.IsZero() {
		rows, err = r.pool.Query(ctx, `
			SELECT `+recordColumns+`
			FROM transaction_records
			WHERE account_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, accountID, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+recordColumns+`
			FROM transaction_records
			WHERE account_id = $1 AND (created_at, id) < ($3, $4)
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, accountID, limit, before, beforeID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountPending counts an account's pending records.
func (r *TransactionRepository) CountPending(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM transaction_records
		WHERE account_id = $1 AND status = $2`,
		accountID, domain.StatusPending).Scan(&count)
	return count, err
}

// SumInRange sums completed amounts in [from, to) for one direction.
func (r *TransactionRepository) SumInRange(ctx context.Context, accountID string, from, to time.Time, direction domain.Direction) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transaction_records
		WHERE account_id = $1 AND direction = $2 AND status = $3
		  AND created_at >= $4 AND created_at < $5`,
		accountID, direction, domain.StatusCompleted, from, to).Scan(&sum)
	return sum, err
}

// UpdateStatus applies the pending to terminal transition. Records
// already terminal are immutable.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.Status, now time.Time) error {
	if status != domain.StatusCompleted && status != domain.StatusFailed {
		return domain.ErrRecordImmutable
	}

	pgxTx := tx.(*Tx).PgxTx()
	tag, err := pgxTx.Exec(ctx, `
		UPDATE transaction_records
		SET status = $2
		WHERE id = $1 AND status = $3`,
		id, status, domain.StatusPending)
	if err != nil {
		return mapConcurrencyError(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := pgxTx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transaction_records WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrRecordNotFound
		}
		return domain.ErrRecordImmutable
	}
	return nil
}

// FindUnpairedTransfers returns correlation IDs whose completed send and
// receive sides disagree in count or amount.
func (r *TransactionRepository) FindUnpairedTransfers(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT correlation_id
		FROM transaction_records
		WHERE kind IN ($1, $2) AND status = $3
		GROUP BY correlation_id
		HAVING COUNT(*) FILTER (WHERE kind = $1) <> COUNT(*) FILTER (WHERE kind = $2)
		    OR COALESCE(SUM(amount) FILTER (WHERE kind = $1), 0) <> COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0)
		LIMIT $4`,
		domain.KindSend, domain.KindReceive, domain.StatusCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var corr string
		if err := rows.Scan(&corr); err != nil {
			return nil, err
		}
		out = append(out, corr)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	err := row.Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.Direction,
		&rec.Kind,
		&rec.Amount,
		&rec.Counterparty,
		&rec.Status,
		&rec.CorrelationID,
		&rec.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func scanRecords(rows pgx.Rows) ([]*domain.TransactionRecord, error) {
	var out []*domain.TransactionRecord
	for rows.Next() {
		var rec domain.TransactionRecord
		err := rows.Scan(
			&rec.ID,
			&rec.AccountID,
			&rec.Direction,
			&rec.Kind,
			&rec.Amount,
			&rec.Counterparty,
			&rec.Status,
			&rec.CorrelationID,
			&rec.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
