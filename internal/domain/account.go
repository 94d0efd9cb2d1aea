package domain

import (
	"time"
)

// AccountStatus describes the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusClosed AccountStatus = "closed"
)

// Account is the per-user balance record. Balance is held in minor
// currency units (paise) and must never go negative. Version is a
// monotonic counter used for optimistic concurrency: every balance
// mutation must name the version it read, or it fails.
type Account struct {
	ID            string
	OwnerID       string
	DisplayName   string
	WalletAddress string
	Balance       int64
	Version       int64
	Status        AccountStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanDebit reports whether debiting amount would keep the balance
// non-negative. The authoritative check happens at mutation time in the
// store; this is only for early rejection.
func (a *Account) CanDebit(amount int64) bool {
	return a.Balance-amount >= 0
}

// IsActive reports whether the account accepts mutations.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
