//	mockgen -source=internal/usecase/interfaces.go -destination=internal/usecase/mocks/mock_collaborators.go -package=mocks
//

// Package mocks is a generated GoMock package.
package mocks

import (
	context "context"
	reflect "reflect"
	time "time"

	decimal "github.com/shopspring/decimal"
	gomock "go.uber.org/mock/gomock"

	domain "github.com/gramdhan/ledger/internal/domain"
)

// MockWalletAllocator is a mock of WalletAllocator interface.
type MockWalletAllocator struct {
	ctrl     *gomock.Controller
	recorder *MockWalletAllocatorMockRecorder
	isgomock struct{}
}

// MockWalletAllocatorMockRecorder is the mock recorder for MockWalletAllocator.
type MockWalletAllocatorMockRecorder struct {
	mock *MockWalletAllocator
}

// NewMockWalletAllocator creates a new mock instance.
func NewMockWalletAllocator(ctrl *gomock.Controller) *MockWalletAllocator {
	mock := &MockWalletAllocator{ctrl: ctrl}
	mock.recorder = &MockWalletAllocatorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockWalletAllocator) EXPECT() *MockWalletAllocatorMockRecorder {
	return m.recorder
}

// AllocateWalletAddress mocks base method.
func (m *MockWalletAllocator) AllocateWalletAddress(ctx context.Context, ownerID string) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AllocateWalletAddress", ctx, ownerID)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// AllocateWalletAddress indicates an expected call of AllocateWalletAddress.
func (mr *MockWalletAllocatorMockRecorder) AllocateWalletAddress(ctx, ownerID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AllocateWalletAddress", reflect.TypeOf((*MockWalletAllocator)(nil).AllocateWalletAddress), ctx, ownerID)
}

// MockAuthorizationGate is a mock of AuthorizationGate interface.
type MockAuthorizationGate struct {
	ctrl     *gomock.Controller
	recorder *MockAuthorizationGateMockRecorder
	isgomock struct{}
}

// MockAuthorizationGateMockRecorder is the mock recorder for MockAuthorizationGate.
type MockAuthorizationGateMockRecorder struct {
	mock *MockAuthorizationGate
}

// NewMockAuthorizationGate creates a new mock instance.
func NewMockAuthorizationGate(ctrl *gomock.Controller) *MockAuthorizationGate {
	mock := &MockAuthorizationGate{ctrl: ctrl}
	mock.recorder = &MockAuthorizationGateMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAuthorizationGate) EXPECT() *MockAuthorizationGateMockRecorder {
	return m.recorder
}

// Authorized mocks base method.
func (m *MockAuthorizationGate) Authorized(ctx context.Context, callerID, action string) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Authorized", ctx, callerID, action)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Authorized indicates an expected call of Authorized.
func (mr *MockAuthorizationGateMockRecorder) Authorized(ctx, callerID, action any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Authorized", reflect.TypeOf((*MockAuthorizationGate)(nil).Authorized), ctx, callerID, action)
}

// MockQuoteFeed is a mock of QuoteFeed interface.
type MockQuoteFeed struct {
	ctrl     *gomock.Controller
	recorder *MockQuoteFeedMockRecorder
	isgomock struct{}
}

// MockQuoteFeedMockRecorder is the mock recorder for MockQuoteFeed.
type MockQuoteFeedMockRecorder struct {
	mock *MockQuoteFeed
}

// NewMockQuoteFeed creates a new mock instance.
func NewMockQuoteFeed(ctrl *gomock.Controller) *MockQuoteFeed {
	mock := &MockQuoteFeed{ctrl: ctrl}
	mock.recorder = &MockQuoteFeedMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockQuoteFeed) EXPECT() *MockQuoteFeedMockRecorder {
	return m.recorder
}

// Quote mocks base method.
func (m *MockQuoteFeed) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Quote", ctx, symbol)
	ret0, _ := ret[0].(decimal.Decimal)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Quote indicates an expected call of Quote.
func (mr *MockQuoteFeedMockRecorder) Quote(ctx, symbol any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Quote", reflect.TypeOf((*MockQuoteFeed)(nil).Quote), ctx, symbol)
}

// MockNotifier is a mock of Notifier interface.
type MockNotifier struct {
	ctrl     *gomock.Controller
	recorder *MockNotifierMockRecorder
	isgomock struct{}
}

// MockNotifierMockRecorder is the mock recorder for MockNotifier.
type MockNotifierMockRecorder struct {
	mock *MockNotifier
}

// NewMockNotifier creates a new mock instance.
func NewMockNotifier(ctrl *gomock.Controller) *MockNotifier {
	mock := &MockNotifier{ctrl: ctrl}
	mock.recorder = &MockNotifierMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockNotifier) EXPECT() *MockNotifierMockRecorder {
	return m.recorder
}

// Notify mocks base method.
func (m *MockNotifier) Notify(ctx context.Context, event *domain.OutboxEvent) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Notify", ctx, event)
	ret0, _ := ret[0].(error)
	return ret0
}

// Notify indicates an expected call of Notify.
func (mr *MockNotifierMockRecorder) Notify(ctx, event any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Notify", reflect.TypeOf((*MockNotifier)(nil).Notify), ctx, event)
}

// MockIdempotencyStore is a mock of IdempotencyStore interface.
type MockIdempotencyStore struct {
	ctrl     *gomock.Controller
	recorder *MockIdempotencyStoreMockRecorder
	isgomock struct{}
}

// MockIdempotencyStoreMockRecorder is the mock recorder for MockIdempotencyStore.
type MockIdempotencyStoreMockRecorder struct {
	mock *MockIdempotencyStore
}

// NewMockIdempotencyStore creates a new mock instance.
func NewMockIdempotencyStore(ctrl *gomock.Controller) *MockIdempotencyStore {
	mock := &MockIdempotencyStore{ctrl: ctrl}
	mock.recorder = &MockIdempotencyStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockIdempotencyStore) EXPECT() *MockIdempotencyStoreMockRecorder {
	return m.recorder
}

// CheckAndSet mocks base method.
func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CheckAndSet", ctx, key, response, ttl)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].([]byte)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// CheckAndSet indicates an expected call of CheckAndSet.
func (mr *MockIdempotencyStoreMockRecorder) CheckAndSet(ctx, key, response, ttl any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CheckAndSet", reflect.TypeOf((*MockIdempotencyStore)(nil).CheckAndSet), ctx, key, response, ttl)
}

// Update mocks base method.
func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Update", ctx, key, response, ttl)
	ret0, _ := ret[0].(error)
	return ret0
}

// Update indicates an expected call of Update.
func (mr *MockIdempotencyStoreMockRecorder) Update(ctx, key, response, ttl any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Update", reflect.TypeOf((*MockIdempotencyStore)(nil).Update), ctx, key, response, ttl)
}
