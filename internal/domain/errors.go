package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountClosed       = errors.New("account is closed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")

	// Transfer errors
	ErrSameAccount       = errors.New("cannot transfer to same account")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrRecipientNotFound = errors.New("recipient wallet address and name do not match")

	// Transaction log errors
	ErrMalformedRecord = errors.New("malformed transaction record")
	ErrRecordNotFound  = errors.New("transaction record not found")
	ErrRecordImmutable = errors.New("transaction record already terminal")
	ErrDuplicateRecord = errors.New("record already exists for correlation id")

	// Savings group errors
	ErrGroupNotFound       = errors.New("savings group not found")
	ErrGroupInactive       = errors.New("savings group is not active")
	ErrNotGroupMember      = errors.New("user is not an active member of the group")
	ErrDuplicateMember     = errors.New("user is already a member of the group")
	ErrAmountOutsidePolicy = errors.New("amount violates group contribution policy")

	// Collaborator errors
	ErrUnauthorized = errors.New("caller is not authorized for this action")
	ErrQuoteFailed  = errors.New("price feed quote unavailable")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
