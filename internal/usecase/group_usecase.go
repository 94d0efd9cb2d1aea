package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/infrastructure/metrics"
)

// SavingsGroupUseCase is the savings-group ledger: it owns membership
// and the group's contribution aggregates. The underlying money
// movement is always delegated to the ledger engine, which calls back
// into RecordContribution after the contributor has been debited.
type SavingsGroupUseCase struct {
	txManager TransactionManager
	groups    GroupRepository
	cache     Cache
	idGen     IDGenerator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewSavingsGroupUseCase creates a new SavingsGroupUseCase.
func NewSavingsGroupUseCase(
	txManager TransactionManager,
	groups GroupRepository,
	cache Cache,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *SavingsGroupUseCase {
	return &SavingsGroupUseCase{
		txManager: txManager,
		groups:    groups,
		cache:     cache,
		idGen:     idGen,
		metrics:   m,
		logger:    logger,
	}
}

// CreateGroupInput represents input for creating a savings group.
type CreateGroupInput struct {
	Name             string
	Policy           domain.ContributionPolicy
	MeetingFrequency string
	InterestRate     decimal.Decimal
}

// CreateGroup creates an active group with no members.
func (uc *SavingsGroupUseCase) CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.SavingsGroup, error) {
	if err := domain.ValidateGroupName(input.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidatePolicy(input.Policy); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	group := &domain.SavingsGroup{
		ID:               uc.idGen.Generate(),
		Name:             input.Name,
		Policy:           input.Policy,
		MeetingFrequency: input.MeetingFrequency,
		InterestRate:     input.InterestRate,
		Status:           domain.GroupStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.groups.Create(ctx, group); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.GroupsCreated.Inc()
	}

	uc.logger.Info().
		Str("group_id", group.ID).
		Str("name", group.Name).
		Msg("savings group created")

	return group, nil
}

// Join adds a user to a group with a zero contribution total. The
// intended contribution amount is validated against the group's policy
// up front so a member never joins with an amount the group would
// reject at contribution time.
func (uc *SavingsGroupUseCase) Join(ctx context.Context, groupID, userID string, contributionAmount int64) (*domain.SavingsGroup, error) {
	group, err := uc.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.Status != domain.GroupStatusActive {
		return nil, domain.ErrGroupInactive
	}
	if !group.Policy.Allows(contributionAmount) {
		return nil, domain.ErrAmountOutsidePolicy
	}
	if group.Member(userID) != nil {
		return nil, domain.ErrDuplicateMember
	}

	member := domain.GroupMember{
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
		Status:   domain.MemberStatusActive,
	}
	if err := uc.groups.AddMember(ctx, groupID, member); err != nil {
		return nil, err
	}

	uc.invalidateSummary(ctx, groupID)

	if uc.metrics != nil {
		uc.metrics.MembersJoined.Inc()
	}

	uc.logger.Info().
		Str("group_id", groupID).
		Str("user_id", userID).
		Msg("member joined savings group")

	return uc.groups.GetByID(ctx, groupID)
}

// Get retrieves a group by ID.
func (uc *SavingsGroupUseCase) Get(ctx context.Context, groupID string) (*domain.SavingsGroup, error) {
	return uc.groups.GetByID(ctx, groupID)
}

// RecordContribution atomically increments the member's contribution
// total and the group's pooled total. Invoked only after the ledger
// engine has debited the contributor.
func (uc *SavingsGroupUseCase) RecordContribution(ctx context.Context, groupID, userID string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if err := uc.groups.ApplyContribution(ctx, tx, groupID, userID, amount, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	uc.invalidateSummary(ctx, groupID)

	return nil
}

// List lists groups with pagination.
func (uc *SavingsGroupUseCase) List(ctx context.Context, limit, offset int) ([]*domain.SavingsGroup, error) {
	limit = domain.ValidatePagination(limit)
	if offset < 0 {
		offset = 0
	}

	return uc.groups.List(ctx, limit, offset)
}

func (uc *SavingsGroupUseCase) invalidateSummary(ctx context.Context, groupID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, groupSummaryCacheKey(groupID)); err != nil {
		uc.logger.Warn().Err(err).Str("group_id", groupID).Msg("failed to invalidate group summary cache")
	}
}

func groupSummaryCacheKey(groupID string) string {
	return fmt.Sprintf("group:summary:%s", groupID)
}
