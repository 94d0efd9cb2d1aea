package dto

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
)

var validate = validator.New()

// DepositRequest represents a request to credit the caller's account.
type DepositRequest struct {
	DisplayName string `json:"displayName" validate:"omitempty,max=128"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Method      string `json:"method" validate:"required,max=64"`
}

// Validate validates the request.
func (r *DepositRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input for the given caller.
func (r *DepositRequest) ToUseCaseInput(ownerID, correlationID string) usecase.DepositInput {
	return usecase.DepositInput{
		OwnerID:       ownerID,
		DisplayName:   r.DisplayName,
		Amount:        r.Amount,
		Method:        r.Method,
		CorrelationID: correlationID,
	}
}

// TransferRequest represents a peer-to-peer transfer request. The
// recipient is named by wallet address plus display name; both must
// match.
type TransferRequest struct {
	RecipientWallet string `json:"recipientWallet" validate:"required,min=8,max=128"`
	RecipientName   string `json:"recipientName" validate:"required,max=128"`
	Amount          int64  `json:"amount" validate:"required,gt=0"`
}

// Validate validates the request.
func (r *TransferRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input for the given caller.
func (r *TransferRequest) ToUseCaseInput(senderOwnerID, correlationID string) usecase.TransferInput {
	return usecase.TransferInput{
		SenderOwnerID:   senderOwnerID,
		RecipientWallet: r.RecipientWallet,
		RecipientName:   r.RecipientName,
		Amount:          r.Amount,
		CorrelationID:   correlationID,
	}
}

// ContributeRequest represents a savings-group contribution request.
type ContributeRequest struct {
	GroupID string `json:"groupId" validate:"required"`
	Amount  int64  `json:"amount" validate:"required,gt=0"`
}

// Validate validates the request.
func (r *ContributeRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input for the given caller.
func (r *ContributeRequest) ToUseCaseInput(userID, correlationID string) usecase.ContributeInput {
	return usecase.ContributeInput{
		UserID:        userID,
		GroupID:       r.GroupID,
		Amount:        r.Amount,
		CorrelationID: correlationID,
	}
}

// CreateGroupRequest represents a request to create a savings group.
type CreateGroupRequest struct {
	Name             string `json:"name" validate:"required,max=255"`
	PolicyKind       string `json:"policyKind" validate:"required,oneof=fixed variable"`
	PolicyAmount     int64  `json:"policyAmount" validate:"omitempty,gt=0"`
	PolicyMin        int64  `json:"policyMin" validate:"omitempty,gt=0"`
	PolicyMax        int64  `json:"policyMax" validate:"omitempty,gt=0"`
	MeetingFrequency string `json:"meetingFrequency" validate:"required,oneof=daily weekly monthly"`
	InterestRate     string `json:"interestRate" validate:"omitempty"`
}

// Validate validates the request.
func (r *CreateGroupRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input.
func (r *CreateGroupRequest) ToUseCaseInput() (usecase.CreateGroupInput, error) {
	rate := decimal.Zero
	if r.InterestRate != "" {
		parsed, err := decimal.NewFromString(r.InterestRate)
		if err != nil {
			return usecase.CreateGroupInput{}, fmt.Errorf("invalid interest rate: %w", err)
		}
		rate = parsed
	}

	return usecase.CreateGroupInput{
		Name: r.Name,
		Policy: domain.ContributionPolicy{
			Kind:   domain.PolicyKind(r.PolicyKind),
			Amount: r.PolicyAmount,
			Min:    r.PolicyMin,
			Max:    r.PolicyMax,
		},
		MeetingFrequency: r.MeetingFrequency,
		InterestRate:     rate,
	}, nil
}

// JoinGroupRequest represents a request to join a savings group.
type JoinGroupRequest struct {
	ContributionAmount int64 `json:"contributionAmount" validate:"required,gt=0"`
}

// Validate validates the request.
func (r *JoinGroupRequest) Validate() error {
	return validate.Struct(r)
}

// BuyUnitsRequest represents a mutual-fund purchase request.
type BuyUnitsRequest struct {
	FundSymbol string `json:"fundSymbol" validate:"required,max=32"`
	FundName   string `json:"fundName" validate:"omitempty,max=128"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
}

// Validate validates the request.
func (r *BuyUnitsRequest) Validate() error {
	return validate.Struct(r)
}

// ToUseCaseInput converts to use case input for the given caller.
func (r *BuyUnitsRequest) ToUseCaseInput(ownerID, correlationID string) usecase.BuyUnitsInput {
	return usecase.BuyUnitsInput{
		OwnerID:       ownerID,
		FundSymbol:    r.FundSymbol,
		FundName:      r.FundName,
		Amount:        r.Amount,
		CorrelationID: correlationID,
	}
}
