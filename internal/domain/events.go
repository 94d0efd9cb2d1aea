package domain

import "time"

// Event types
const (
	EventTypeAccountCreated          = "account.created"
	EventTypeDepositCompleted        = "deposit.completed"
	EventTypeTransferCompleted       = "transfer.completed"
	EventTypeContributionRecorded    = "contribution.recorded"
	EventTypeContributionCompensated = "contribution.compensated"
	EventTypeInvestmentSettled       = "investment.settled"
)

// Aggregate types
const (
	AggregateTypeAccount  = "account"
	AggregateTypeTransfer = "transfer"
	AggregateTypeGroup    = "group"
)

// OutboxEvent is a domain event recorded in the same atomic scope as the
// state change it describes, and published asynchronously.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// DepositCompletedEvent payload
type DepositCompletedEvent struct {
	RecordID  string `json:"record_id"`
	AccountID string `json:"account_id"`
	OwnerID   string `json:"owner_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
}

// TransferCompletedEvent payload
type TransferCompletedEvent struct {
	CorrelationID      string `json:"correlation_id"`
	SenderAccountID    string `json:"sender_account_id"`
	RecipientAccountID string `json:"recipient_account_id"`
	Amount             int64  `json:"amount"`
}

// ContributionRecordedEvent payload
type ContributionRecordedEvent struct {
	CorrelationID string `json:"correlation_id"`
	GroupID       string `json:"group_id"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
}

// ContributionCompensatedEvent payload
type ContributionCompensatedEvent struct {
	CorrelationID string `json:"correlation_id"`
	GroupID       string `json:"group_id"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
}
