package domain

import (
	"time"
)

// Direction marks which side of a monetary event a record documents.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Kind classifies the monetary event.
type Kind string

const (
	KindDeposit      Kind = "deposit"
	KindSend         Kind = "send"
	KindReceive      Kind = "receive"
	KindContribution Kind = "contribution"
	KindWithdraw     Kind = "withdraw"
)

// Status is the record lifecycle state. Records are immutable once a
// terminal status (completed or failed) is reached.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// TransactionRecord is one side of a monetary event in the append-only
// log. The two sides of a transfer share a CorrelationID and an equal
// Amount; Counterparty is an opaque display string and never used for
// pairing.
type TransactionRecord struct {
	ID            string
	AccountID     string
	Direction     Direction
	Kind          Kind
	Amount        int64
	Counterparty  string
	Status        Status
	CorrelationID string
	Timestamp     time.Time
}

// Validate checks structural invariants before the record is appended.
func (r *TransactionRecord) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.AccountID == "" {
		return ErrMalformedRecord
	}
	if r.CorrelationID == "" {
		return ErrMalformedRecord
	}
	switch r.Direction {
	case DirectionDebit, DirectionCredit:
	default:
		return ErrMalformedRecord
	}
	switch r.Kind {
	case KindDeposit, KindSend, KindReceive, KindContribution, KindWithdraw:
	default:
		return ErrMalformedRecord
	}
	return nil
}

// Terminal reports whether the record can no longer change.
func (r *TransactionRecord) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// CanTransitionTo enforces the pending -> completed|failed state machine.
func (r *TransactionRecord) CanTransitionTo(next Status) bool {
	if r.Status != StatusPending {
		return false
	}
	return next == StatusCompleted || next == StatusFailed
}
