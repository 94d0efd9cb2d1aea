package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gramdhan/ledger/internal/domain"
)

// AccountRepository defines data access for accounts. The ledger engine
// is the only writer; no method here records why a balance moved - that
// is the transaction log's job.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error)
	// GetByWallet resolves an account by its externally issued wallet
	// address.
	GetByWallet(ctx context.Context, walletAddress string) (*domain.Account, error)
	// GetOrCreateByOwner returns the owner's account, creating it with a
	// zero balance and an allocator-issued wallet address if absent.
	// Idempotent under concurrent first use; the bool reports whether this
	// call created the row.
	GetOrCreateByOwner(ctx context.Context, ownerID, displayName string, alloc WalletAllocator) (*domain.Account, bool, error)
	// CompareAndAdjust atomically applies balance += delta only if the
	// current version equals expectedVersion and the resulting balance is
	// non-negative. On success the version is incremented. Fails with
	// domain.ErrConcurrencyConflict or domain.ErrInsufficientFunds.
	CompareAndAdjust(ctx context.Context, tx Transaction, id string, delta int64, expectedVersion int64, now time.Time) (*domain.Account, error)
}

// TransactionRepository defines data access for the append-only
// transaction log.
type TransactionRepository interface {
	Append(ctx context.Context, tx Transaction, record *domain.TransactionRecord) error
	GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error)
	GetByCorrelation(ctx context.Context, correlationID string) ([]*domain.TransactionRecord, error)
	// ListRecent returns records newest first. A zero before time starts
	// from the newest; otherwise only records strictly older than the
	// (before, beforeID) composite cursor are returned, so pages split
	// cleanly even when neighbouring records share a timestamp.
	ListRecent(ctx context.Context, accountID string, limit int, before time.Time, beforeID string) ([]*domain.TransactionRecord, error)
	CountPending(ctx context.Context, accountID string) (int, error)
	// SumInRange sums amounts of completed records in [from, to) for one
	// direction.
	SumInRange(ctx context.Context, accountID string, from, to time.Time, direction domain.Direction) (int64, error)
	// UpdateStatus applies the pending -> terminal transition. Terminal
	// records are immutable; any other transition fails with
	// domain.ErrRecordImmutable.
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.Status, now time.Time) error
	// FindUnpairedTransfers returns correlation IDs of completed send
	// records lacking a matching completed receive of equal amount.
	FindUnpairedTransfers(ctx context.Context, limit int) ([]string, error)
}

// GroupRepository defines data access for savings groups.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.SavingsGroup) error
	GetByID(ctx context.Context, id string) (*domain.SavingsGroup, error)
	AddMember(ctx context.Context, groupID string, member domain.GroupMember) error
	// ApplyContribution increments the member's total and the group's
	// pooled total by amount as one unit.
	ApplyContribution(ctx context.Context, tx Transaction, groupID, userID string, amount int64, now time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.SavingsGroup, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// GroupLedger is the savings-group aggregate the ledger engine hands off
// to after debiting a contributor.
type GroupLedger interface {
	Get(ctx context.Context, groupID string) (*domain.SavingsGroup, error)
	RecordContribution(ctx context.Context, groupID, userID string, amount int64) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// WalletAllocator is the external key-issuance collaborator. It is
// invoked only on first account creation.
type WalletAllocator interface {
	AllocateWalletAddress(ctx context.Context, ownerID string) (string, error)
}

// AuthorizationGate reports whether a caller is cleared for a monetary
// action. How authorization was established (PIN, biometric, session) is
// not inspected here.
type AuthorizationGate interface {
	Authorized(ctx context.Context, callerID, action string) (bool, error)
}

// QuoteFeed is the opaque price/NAV collaborator for investments.
type QuoteFeed interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Notifier delivers published outbox events to an external channel
// (SMS, push). Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, event *domain.OutboxEvent) error
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
