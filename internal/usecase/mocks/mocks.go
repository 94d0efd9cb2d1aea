package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gramdhan/ledger/internal/domain"
	"github.com/gramdhan/ledger/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
// The default behaviour enforces the same compare-and-adjust semantics
// as the real store: version match, non-negative result.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	GetByIDFunc            func(ctx context.Context, id string) (*domain.Account, error)
	GetByOwnerFunc         func(ctx context.Context, ownerID string) (*domain.Account, error)
	GetByWalletFunc        func(ctx context.Context, walletAddress string) (*domain.Account, error)
	GetOrCreateByOwnerFunc func(ctx context.Context, ownerID, displayName string, alloc usecase.WalletAllocator) (*domain.Account, bool, error)
	CompareAndAdjustFunc   func(ctx context.Context, tx usecase.Transaction, id string, delta int64, expectedVersion int64, now time.Time) (*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Seed inserts an account directly, bypassing the allocator.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *account
	m.accounts[account.ID] = &cp
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		cp := *acc
		return &cp, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	if m.GetByOwnerFunc != nil {
		return m.GetByOwnerFunc(ctx, ownerID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.accounts {
		if acc.OwnerID == ownerID {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByWallet(ctx context.Context, walletAddress string) (*domain.Account, error) {
	if m.GetByWalletFunc != nil {
		return m.GetByWalletFunc(ctx, walletAddress)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.accounts {
		if acc.WalletAddress == walletAddress {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetOrCreateByOwner(ctx context.Context, ownerID, displayName string, alloc usecase.WalletAllocator) (*domain.Account, bool, error) {
	if m.GetOrCreateByOwnerFunc != nil {
		return m.GetOrCreateByOwnerFunc(ctx, ownerID, displayName, alloc)
	}
	if acc, err := m.GetByOwner(ctx, ownerID); err == nil {
		return acc, false, nil
	}
	address, err := alloc.AllocateWalletAddress(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	acc := &domain.Account{
		ID:            "acc-" + ownerID,
		OwnerID:       ownerID,
		DisplayName:   displayName,
		WalletAddress: address,
		Status:        domain.AccountStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.mu.Lock()
	m.accounts[acc.ID] = acc
	m.mu.Unlock()
	cp := *acc
	return &cp, true, nil
}

func (m *MockAccountRepository) CompareAndAdjust(ctx context.Context, tx usecase.Transaction, id string, delta int64, expectedVersion int64, now time.Time) (*domain.Account, error) {
	if m.CompareAndAdjustFunc != nil {
		return m.CompareAndAdjustFunc(ctx, tx, id, delta, expectedVersion, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if acc.Status != domain.AccountStatusActive {
		return nil, domain.ErrAccountClosed
	}
	if acc.Version != expectedVersion {
		return nil, domain.ErrConcurrencyConflict
	}
	if acc.Balance+delta < 0 {
		return nil, domain.ErrInsufficientFunds
	}
	acc.Balance += delta
	acc.Version++
	acc.UpdatedAt = now
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if a, ok := m.accounts[id]; ok {
			a.Balance -= delta
			a.Version--
		}
	})
	cp := *acc
	return &cp, nil
}

// MockTransactionRepository is a mock implementation of
// TransactionRepository backed by an in-memory append-only slice.
type MockTransactionRepository struct {
	mu      sync.RWMutex
	records []*domain.TransactionRecord

	AppendFunc                func(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error
	GetByCorrelationFunc      func(ctx context.Context, correlationID string) ([]*domain.TransactionRecord, error)
	UpdateStatusFunc          func(ctx context.Context, tx usecase.Transaction, id string, status domain.Status, now time.Time) error
	FindUnpairedTransfersFunc func(ctx context.Context, limit int) ([]string, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

func (m *MockTransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, record)
	}
	if err := record.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	m.records = append(m.records, &cp)
	recordID := record.ID
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, r := range m.records {
			if r.ID == recordID {
				m.records = append(m.records[:i], m.records[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (m *MockTransactionRepository) GetByCorrelation(ctx context.Context, correlationID string) ([]*domain.TransactionRecord, error) {
	if m.GetByCorrelationFunc != nil {
		return m.GetByCorrelationFunc(ctx, correlationID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TransactionRecord
	for _, r := range m.records {
		if r.CorrelationID == correlationID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) ListRecent(ctx context.Context, accountID string, limit int, before time.Time, beforeID string) ([]*domain.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TransactionRecord
	for _, r := range m.records {
		if r.AccountID != accountID {
			continue
		}
		if !before.IsZero() {
			older := r.Timestamp.Before(before) ||
				(r.Timestamp.Equal(before) && r.ID < beforeID)
			if !older {
				continue
			}
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockTransactionRepository) CountPending(ctx context.Context, accountID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.records {
		if r.AccountID == accountID && r.Status == domain.StatusPending {
			count++
		}
	}
	return count, nil
}

func (m *MockTransactionRepository) SumInRange(ctx context.Context, accountID string, from, to time.Time, direction domain.Direction) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, r := range m.records {
		if r.AccountID != accountID || r.Direction != direction || r.Status != domain.StatusCompleted {
			continue
		}
		if r.Timestamp.Before(from) || !r.Timestamp.Before(to) {
			continue
		}
		sum += r.Amount
	}
	return sum, nil
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.Status, now time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			if !r.CanTransitionTo(status) {
				return domain.ErrRecordImmutable
			}
			prev := r.Status
			r.Status = status
			rec := r
			registerUndo(tx, func() {
				m.mu.Lock()
				defer m.mu.Unlock()
				rec.Status = prev
			})
			return nil
		}
	}
	return domain.ErrRecordNotFound
}

func (m *MockTransactionRepository) FindUnpairedTransfers(ctx context.Context, limit int) ([]string, error) {
	if m.FindUnpairedTransfersFunc != nil {
		return m.FindUnpairedTransfersFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sends := make(map[string]int64)
	receives := make(map[string]int64)
	for _, r := range m.records {
		if r.Status != domain.StatusCompleted {
			continue
		}
		switch r.Kind {
		case domain.KindSend:
			sends[r.CorrelationID] = r.Amount
		case domain.KindReceive:
			receives[r.CorrelationID] = r.Amount
		}
	}
	var out []string
	for corr, amount := range sends {
		if receives[corr] != amount {
			out = append(out, corr)
		}
	}
	for corr := range receives {
		if _, ok := sends[corr]; !ok {
			out = append(out, corr)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns a snapshot of every record, for assertions.
func (m *MockTransactionRepository) All() []*domain.TransactionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.TransactionRecord, 0, len(m.records))
	for _, r := range m.records {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

// MockGroupRepository is a mock implementation of GroupRepository.
type MockGroupRepository struct {
	mu     sync.RWMutex
	groups map[string]*domain.SavingsGroup

	ApplyContributionFunc func(ctx context.Context, tx usecase.Transaction, groupID, userID string, amount int64, now time.Time) error
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{
		groups: make(map[string]*domain.SavingsGroup),
	}
}

func (m *MockGroupRepository) Create(ctx context.Context, group *domain.SavingsGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *group
	m.groups[group.ID] = &cp
	return nil
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id string) (*domain.SavingsGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	cp := *g
	cp.Members = append([]domain.GroupMember(nil), g.Members...)
	return &cp, nil
}

func (m *MockGroupRepository) AddMember(ctx context.Context, groupID string, member domain.GroupMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return domain.ErrGroupNotFound
	}
	if g.Member(member.UserID) != nil {
		return domain.ErrDuplicateMember
	}
	g.Members = append(g.Members, member)
	return nil
}

func (m *MockGroupRepository) ApplyContribution(ctx context.Context, tx usecase.Transaction, groupID, userID string, amount int64, now time.Time) error {
	if m.ApplyContributionFunc != nil {
		return m.ApplyContributionFunc(ctx, tx, groupID, userID, amount, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return domain.ErrGroupNotFound
	}
	member := g.Member(userID)
	if member == nil {
		return domain.ErrNotGroupMember
	}
	member.TotalContributed += amount
	g.TotalSaved += amount
	g.UpdatedAt = now
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if g, ok := m.groups[groupID]; ok {
			if mem := g.Member(userID); mem != nil {
				mem.TotalContributed -= amount
				g.TotalSaved -= amount
			}
		}
	})
	return nil
}

func (m *MockGroupRepository) List(ctx context.Context, limit, offset int) ([]*domain.SavingsGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.groups))
	for id := range m.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*domain.SavingsGroup
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		cp := *m.groups[id]
		cp.Members = append([]domain.GroupMember(nil), m.groups[id].Members...)
		out = append(out, &cp)
	}
	return out, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	m.events = append(m.events, &cp)
	eventID := event.ID
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.events {
			if e.ID == eventID {
				m.events = append(m.events[:i], m.events[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if e.Published {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return nil
}

// Events returns a snapshot of all events, for assertions.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.OutboxEvent, 0, len(m.events))
	for _, e := range m.events {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// MockTransaction replays registered undo functions on rollback so
// multi-step atomic units stay atomic against the in-memory stores.
type MockTransaction struct {
	mu         sync.Mutex
	undos      []func()
	Committed  bool
	RolledBack bool
}

func (t *MockTransaction) onRollback(fn func()) {
	t.mu.Lock()
	t.undos = append(t.undos, fn)
	t.mu.Unlock()
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Committed = true
	t.undos = nil
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Committed || t.RolledBack {
		return nil
	}
	for i := len(t.undos) - 1; i >= 0; i-- {
		t.undos[i]()
	}
	t.undos = nil
	t.RolledBack = true
	return nil
}

func registerUndo(tx usecase.Transaction, fn func()) {
	if mt, ok := tx.(*MockTransaction); ok && mt != nil {
		mt.onRollback(fn)
	}
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockIDGenerator is a deterministic ID generator.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%06d", m.counter)
}

// MockCache is an in-memory cache ignoring TTLs.
type MockCache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// MockGroupLedger is a mock implementation of GroupLedger.
type MockGroupLedger struct {
	GetFunc                func(ctx context.Context, groupID string) (*domain.SavingsGroup, error)
	RecordContributionFunc func(ctx context.Context, groupID, userID string, amount int64) error
}

func (m *MockGroupLedger) Get(ctx context.Context, groupID string) (*domain.SavingsGroup, error) {
	return m.GetFunc(ctx, groupID)
}

func (m *MockGroupLedger) RecordContribution(ctx context.Context, groupID, userID string, amount int64) error {
	return m.RecordContributionFunc(ctx, groupID, userID, amount)
}
