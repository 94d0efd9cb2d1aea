package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
)

// GroupRepository implements usecase.GroupRepository. Groups and their
// member rows live in separate tables; ApplyContribution moves both
// aggregates inside the caller's transaction.
type GroupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// Create persists a new group.
func (r *GroupRepository) Create(ctx context.Context, group *domain.SavingsGroup) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO savings_groups (id, name, policy_kind, policy_amount, policy_min, policy_max, meeting_frequency, total_saved, interest_rate, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		group.ID, group.Name,
		group.Policy.Kind, group.Policy.Amount, group.Policy.Min, group.Policy.Max,
		group.MeetingFrequency, group.TotalSaved, group.InterestRate,
		group.Status, group.CreatedAt, group.UpdatedAt)
	return err
}

// GetByID retrieves a group with its members.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*domain.SavingsGroup, error) {
	var g domain.SavingsGroup
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, policy_kind, policy_amount, policy_min, policy_max, meeting_frequency, total_saved, interest_rate, status, created_at, updated_at
		FROM savings_groups WHERE id = $1`, id).Scan(
		&g.ID, &g.Name,
		&g.Policy.Kind, &g.Policy.Amount, &g.Policy.Min, &g.Policy.Max,
		&g.MeetingFrequency, &g.TotalSaved, &g.InterestRate,
		&g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}

	members, err := r.members(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Members = members

	return &g, nil
}

// AddMember inserts a member row. A duplicate user in the same group is
// rejected by the primary key.
func (r *GroupRepository) AddMember(ctx context.Context, groupID string, member domain.GroupMember) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, total_contributed, status, joined_at)
		VALUES ($1, $2, $3, $4, $5)`,
		groupID, member.UserID, member.TotalContributed, member.Status, member.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return domain.ErrDuplicateMember
			case pgErrForeignKeyViolation:
				return domain.ErrGroupNotFound
			}
		}
		return err
	}
	return nil
}

// ApplyContribution increments the member's total and the group's
// pooled total within the caller's transaction. Both rows move or
// neither does, keeping the pooled-total invariant intact.
func (r *GroupRepository) ApplyContribution(ctx context.Context, tx usecase.Transaction, groupID, userID string, amount int64, now time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE group_members
		SET total_contributed = total_contributed + $3
		WHERE group_id = $1 AND user_id = $2 AND status = $4`,
		groupID, userID, amount, domain.MemberStatusActive)
	if err != nil {
		return mapConcurrencyError(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := pgxTx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM savings_groups WHERE id = $1)`, groupID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrGroupNotFound
		}
		return domain.ErrNotGroupMember
	}

	tag, err = pgxTx.Exec(ctx, `
		UPDATE savings_groups
		SET total_saved = total_saved + $2, updated_at = $3
		WHERE id = $1`,
		groupID, amount, now)
	if err != nil {
		return mapConcurrencyError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

// List lists groups with their members, oldest first.
func (r *GroupRepository) List(ctx context.Context, limit, offset int) ([]*domain.SavingsGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, policy_kind, policy_amount, policy_min, policy_max, meeting_frequency, total_saved, interest_rate, status, created_at, updated_at
		FROM savings_groups
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.SavingsGroup
	for rows.Next() {
		var g domain.SavingsGroup
		err := rows.Scan(
			&g.ID, &g.Name,
			&g.Policy.Kind, &g.Policy.Amount, &g.Policy.Min, &g.Policy.Max,
			&g.MeetingFrequency, &g.TotalSaved, &g.InterestRate,
			&g.Status, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		members, err := r.members(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.Members = members
	}

	return groups, nil
}

func (r *GroupRepository) members(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, total_contributed, status, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at, user_id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.UserID, &m.TotalContributed, &m.Status, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
