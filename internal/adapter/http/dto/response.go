package dto

import (
	"time"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MonthlyChangeResponse is the net movement since the first of the
// month: an absolute amount plus its sign.
type MonthlyChangeResponse struct {
	Amount     int64 `json:"amount"`
	IsPositive bool  `json:"isPositive"`
}

// BalanceResponse represents the caller's balance summary.
type BalanceResponse struct {
	Balance       int64                 `json:"balance"`
	MonthlyChange MonthlyChangeResponse `json:"monthlyChange"`
}

// BalanceFromSummary converts a balance summary to a response.
func BalanceFromSummary(s *usecase.BalanceSummary) *BalanceResponse {
	return &BalanceResponse{
		Balance: s.Balance,
		MonthlyChange: MonthlyChangeResponse{
			Amount:     s.MonthlyChange.Amount,
			IsPositive: s.MonthlyChange.IsPositive,
		},
	}
}

// TransactionResponse represents one transaction record.
type TransactionResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	With      string    `json:"with"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionFromDomain converts a domain record to a response.
func TransactionFromDomain(r *domain.TransactionRecord) TransactionResponse {
	return TransactionResponse{
		ID:        r.ID,
		Type:      string(r.Kind),
		Amount:    r.Amount,
		With:      r.Counterparty,
		Status:    string(r.Status),
		Timestamp: r.Timestamp,
	}
}

// ActivityResponse is one page of the caller's transaction history.
type ActivityResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	PendingCount int                   `json:"pendingCount"`
	NextBefore   *time.Time            `json:"nextBefore,omitempty"`
	NextBeforeID string                `json:"nextBeforeId,omitempty"`
}

// ActivityFromPage converts an activity page to a response.
func ActivityFromPage(p *usecase.ActivityPage) *ActivityResponse {
	txs := make([]TransactionResponse, len(p.Transactions))
	for i, r := range p.Transactions {
		txs[i] = TransactionFromDomain(r)
	}

	resp := &ActivityResponse{
		Transactions: txs,
		PendingCount: p.PendingCount,
	}
	if !p.NextBefore.IsZero() {
		next := p.NextBefore
		resp.NextBefore = &next
		resp.NextBeforeID = p.NextBeforeID
	}
	return resp
}

// TransferResponse represents both sides of a completed transfer.
type TransferResponse struct {
	CorrelationID string              `json:"correlationId"`
	Send          TransactionResponse `json:"send"`
	Receive       TransactionResponse `json:"receive"`
}

// TransferFromResult converts a transfer result to a response.
func TransferFromResult(res *usecase.TransferResult) *TransferResponse {
	return &TransferResponse{
		CorrelationID: res.CorrelationID,
		Send:          TransactionFromDomain(res.Send),
		Receive:       TransactionFromDomain(res.Receive),
	}
}

// GroupResponse represents a savings group in API responses.
type GroupResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	MemberCount      int    `json:"memberCount"`
	TotalSaved       int64  `json:"totalSaved"`
	Contribution     string `json:"contribution"`
	MeetingFrequency string `json:"meetingFrequency"`
	InterestRate     string `json:"interestRate"`
}

// GroupFromDomain converts a domain group to a response.
func GroupFromDomain(g *domain.SavingsGroup) *GroupResponse {
	return &GroupResponse{
		ID:               g.ID,
		Name:             g.Name,
		Status:           string(g.Status),
		MemberCount:      len(g.Members),
		TotalSaved:       g.TotalSaved,
		Contribution:     usecase.FormatPolicy(g.Policy, g.MeetingFrequency),
		MeetingFrequency: g.MeetingFrequency,
		InterestRate:     g.InterestRate.StringFixed(2),
	}
}

// GroupsFromDomain converts domain groups to responses.
func GroupsFromDomain(groups []*domain.SavingsGroup) []*GroupResponse {
	result := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		result[i] = GroupFromDomain(g)
	}
	return result
}

// PurchaseResponse represents the outcome of a fund purchase.
type PurchaseResponse struct {
	Record TransactionResponse `json:"record"`
	NAV    string              `json:"nav"`
	Units  string              `json:"units"`
}

// PurchaseFromResult converts a purchase to a response.
func PurchaseFromResult(p *usecase.Purchase) *PurchaseResponse {
	return &PurchaseResponse{
		Record: TransactionFromDomain(p.Record),
		NAV:    p.NAV.String(),
		Units:  p.Units.String(),
	}
}
