package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupStatus describes the lifecycle state of a savings group.
type GroupStatus string

const (
	GroupStatusActive    GroupStatus = "active"
	GroupStatusInactive  GroupStatus = "inactive"
	GroupStatusCompleted GroupStatus = "completed"
)

// MemberStatus describes a member's standing within a group.
type MemberStatus string

const (
	MemberStatusActive MemberStatus = "active"
	MemberStatusLeft   MemberStatus = "left"
)

// PolicyKind selects how contribution amounts are constrained.
type PolicyKind string

const (
	PolicyFixed    PolicyKind = "fixed"
	PolicyVariable PolicyKind = "variable"
)

// ContributionPolicy bounds the amounts a group accepts. Fixed policies
// accept exactly Amount; variable policies accept anything in [Min, Max].
type ContributionPolicy struct {
	Kind   PolicyKind
	Amount int64
	Min    int64
	Max    int64
}

// Allows reports whether amount satisfies the policy.
func (p ContributionPolicy) Allows(amount int64) bool {
	if amount <= 0 {
		return false
	}
	switch p.Kind {
	case PolicyFixed:
		return amount == p.Amount
	case PolicyVariable:
		return amount >= p.Min && amount <= p.Max
	default:
		return false
	}
}

// GroupMember is one user's standing inside a savings group.
type GroupMember struct {
	UserID           string
	JoinedAt         time.Time
	TotalContributed int64
	Status           MemberStatus
}

// SavingsGroup is a community pool aggregating member contributions.
// Invariant: TotalSaved == sum of members' TotalContributed, and a user
// appears at most once in Members.
type SavingsGroup struct {
	ID               string
	Name             string
	Policy           ContributionPolicy
	MeetingFrequency string
	Members          []GroupMember
	TotalSaved       int64
	InterestRate     decimal.Decimal
	Status           GroupStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Member returns the member entry for userID, or nil.
func (g *SavingsGroup) Member(userID string) *GroupMember {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// CanAccept checks that the group is active and amount is within policy.
func (g *SavingsGroup) CanAccept(amount int64) error {
	if g.Status != GroupStatusActive {
		return ErrGroupInactive
	}
	if !g.Policy.Allows(amount) {
		return ErrAmountOutsidePolicy
	}
	return nil
}

// Consistent reports whether the pooled total equals the sum of
// per-member contribution totals.
func (g *SavingsGroup) Consistent() bool {
	var sum int64
	for _, m := range g.Members {
		sum += m.TotalContributed
	}
	return sum == g.TotalSaved
}
