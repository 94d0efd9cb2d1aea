package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrInvalidGroupName     = errors.New("invalid group name")
	ErrInvalidWalletAddress = errors.New("invalid wallet address")
	ErrInvalidDisplayName   = errors.New("invalid display name")
	ErrAmountTooLarge       = errors.New("amount exceeds maximum allowed")
	ErrInvalidPolicy        = errors.New("invalid contribution policy")
)

// Validation constants
const (
	MaxGroupNameLength   = 255
	MaxDisplayNameLength = 128
	// MaxOperationAmount caps any single movement at ten crore rupees,
	// in paise.
	MaxOperationAmount = int64(1_000_000_000_00)
)

var walletAddressRegex = regexp.MustCompile(`^[A-Za-z0-9:_-]{8,128}$`)

// ValidateAmount validates an operation amount in paise.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxOperationAmount {
		return fmt.Errorf("%w: maximum is %d", ErrAmountTooLarge, MaxOperationAmount)
	}
	return nil
}

// ValidateWalletAddress validates the shape of an externally issued
// wallet address. Addresses are opaque; only length and charset are
// checked.
func ValidateWalletAddress(address string) error {
	if !walletAddressRegex.MatchString(address) {
		return ErrInvalidWalletAddress
	}
	return nil
}

// NormalizeDisplayName canonicalizes a display name for recipient
// matching: trimmed, single-spaced, case-insensitive.
func NormalizeDisplayName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ValidateDisplayName validates a recipient display name.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > MaxDisplayNameLength {
		return ErrInvalidDisplayName
	}
	return nil
}

// ValidateGroupName validates a savings group name.
func ValidateGroupName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > MaxGroupNameLength {
		return ErrInvalidGroupName
	}
	return nil
}

// ValidatePolicy validates a contribution policy definition.
func ValidatePolicy(p ContributionPolicy) error {
	switch p.Kind {
	case PolicyFixed:
		if p.Amount <= 0 {
			return fmt.Errorf("%w: fixed amount must be positive", ErrInvalidPolicy)
		}
	case PolicyVariable:
		if p.Min <= 0 || p.Max < p.Min {
			return fmt.Errorf("%w: variable bounds must satisfy 0 < min <= max", ErrInvalidPolicy)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPolicy, p.Kind)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters.
func ValidatePagination(limit int) int {
	const (
		maxPageSize     = 100
		defaultPageSize = 20
	)

	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
