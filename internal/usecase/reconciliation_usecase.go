package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gramdhan/ledger/internal/domain"
)

// ReconciliationUseCase verifies the ledger's cross-record invariants:
// every completed send is paired with exactly one completed receive of
// equal amount, and every group's pooled total equals the sum of its
// members' contribution totals.
type ReconciliationUseCase struct {
	records TransactionRepository
	groups  GroupRepository
	logger  zerolog.Logger
}

// NewReconciliationUseCase creates a new ReconciliationUseCase.
func NewReconciliationUseCase(records TransactionRepository, groups GroupRepository, logger zerolog.Logger) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		records: records,
		groups:  groups,
		logger:  logger,
	}
}

// ConsistencyReport is the outcome of a ledger verification pass.
type ConsistencyReport struct {
	Consistent         bool     `json:"consistent"`
	UnpairedTransfers  []string `json:"unpaired_transfers,omitempty"`
	InconsistentGroups []string `json:"inconsistent_groups,omitempty"`
	GroupsChecked      int      `json:"groups_checked"`
}

// VerifyLedger checks pairing and group-aggregate invariants over
// committed state.
func (uc *ReconciliationUseCase) VerifyLedger(ctx context.Context) (*ConsistencyReport, error) {
	const checkLimit = 1000

	unpaired, err := uc.records.FindUnpairedTransfers(ctx, checkLimit)
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		UnpairedTransfers: unpaired,
	}

	offset := 0
	for {
		groups, err := uc.groups.List(ctx, 100, offset)
		if err != nil {
			return nil, err
		}
		if len(groups) == 0 {
			break
		}

		for _, g := range groups {
			report.GroupsChecked++
			if !g.Consistent() {
				report.InconsistentGroups = append(report.InconsistentGroups, g.ID)
			}
		}

		offset += len(groups)
	}

	report.Consistent = len(report.UnpairedTransfers) == 0 && len(report.InconsistentGroups) == 0

	if !report.Consistent {
		uc.logger.Error().
			Int("unpaired_transfers", len(report.UnpairedTransfers)).
			Int("inconsistent_groups", len(report.InconsistentGroups)).
			Msg("ledger consistency check failed")
	}

	return report, nil
}

// Verify domain invariants hold for a single group, used by tests and
// the CLI spot check.
func (uc *ReconciliationUseCase) VerifyGroup(ctx context.Context, groupID string) (bool, error) {
	group, err := uc.groups.GetByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	if group == nil {
		return false, domain.ErrGroupNotFound
	}
	return group.Consistent(), nil
}
