package usecase

import "time"

const (
	// maxAdjustAttempts bounds optimistic-concurrency retries before an
	// operation surfaces domain.ErrConcurrencyConflict.
	maxAdjustAttempts = 3

	// adjustRetryInterval is the initial backoff between retries.
	adjustRetryInterval = 25 * time.Millisecond

	// adjustRetryMaxInterval caps the backoff between retries.
	adjustRetryMaxInterval = 250 * time.Millisecond
)

// Action names passed to the authorization gate.
const (
	ActionDeposit    = "deposit"
	ActionTransfer   = "transfer"
	ActionContribute = "contribute"
	ActionInvest     = "invest"
)
