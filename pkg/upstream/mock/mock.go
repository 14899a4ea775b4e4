// Package mock provides mocks of upstream APIs for tests.
//
// Mocks are safe for concurrent use.
// Calling a method without its Impl reports a test error and returns ErrNotReady.
package mock

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/api/types/policy"
	"github.com/glasswall/icap-management-ui/pkg/api/types/transactions"
	"github.com/glasswall/icap-management-ui/pkg/upstream"
	"github.com/google/uuid"
)

var ErrNotReady = errors.New("mock: not ready to be called")

type PolicyCalls struct {
	GetPolicy                []uuid.UUID
	GetCurrentPolicy         int
	GetDraftPolicy           int
	GetPolicyHistory         int
	SaveDraftPolicy          []policy.Policy
	PublishPolicy            []uuid.UUID
	DeletePolicy             []uuid.UUID
	DistributeAdaptionPolicy int
}

type MockPolicyManagementApi struct {
	t  *testing.T
	mu sync.Mutex

	Impl struct {
		GetPolicy                func(ctx context.Context, id uuid.UUID) (policy.Policy, error)
		GetCurrentPolicy         func(ctx context.Context) (policy.Policy, error)
		GetDraftPolicy           func(ctx context.Context) (policy.Policy, error)
		GetPolicyHistory         func(ctx context.Context) (policy.History, error)
		SaveDraftPolicy          func(ctx context.Context, p policy.Policy) error
		PublishPolicy            func(ctx context.Context, id uuid.UUID) error
		DeletePolicy             func(ctx context.Context, id uuid.UUID) error
		DistributeAdaptionPolicy func(ctx context.Context) error
	}
	calls PolicyCalls
}

var _ upstream.PolicyManagementApi = &MockPolicyManagementApi{}

func NewPolicyManagementApi(t *testing.T) *MockPolicyManagementApi {
	return &MockPolicyManagementApi{t: t}
}

// Calls returns a copy of recorded calls.
func (m *MockPolicyManagementApi) Calls() PolicyCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.calls
	c.GetPolicy = slices.Clone(c.GetPolicy)
	c.SaveDraftPolicy = slices.Clone(c.SaveDraftPolicy)
	c.PublishPolicy = slices.Clone(c.PublishPolicy)
	c.DeletePolicy = slices.Clone(c.DeletePolicy)
	return c
}

func (m *MockPolicyManagementApi) record(f func(c *PolicyCalls)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f(&m.calls)
}

func notReady(t *testing.T, name string) error {
	t.Helper()
	t.Errorf("%s is not ready to be called", name)
	return ErrNotReady
}

func (m *MockPolicyManagementApi) GetPolicy(ctx context.Context, id uuid.UUID) (policy.Policy, error) {
	m.t.Helper()
	m.record(func(c *PolicyCalls) { c.GetPolicy = append(c.GetPolicy, id) })
	if m.Impl.GetPolicy == nil {
		return policy.Policy{}, notReady(m.t, "GetPolicy")
	}
	return m.Impl.GetPolicy(ctx, id)
}

func (m *MockPolicyManagementApi) GetCurrentPolicy(ctx context.Context) (policy.Policy, error) {
	m.t.Helper()
	m.record(func(c *PolicyCalls) { c.GetCurrentPolicy += 1 })
	if m.Impl.GetCurrentPolicy == nil {
		return policy.Policy{}, notReady(m.t, "GetCurrentPolicy")
	}
	return m.Impl.GetCurrentPolicy(ctx)
}

func (m *MockPolicyManagementApi) GetDraftPolicy(ctx context.Context) (policy.Policy, error) {
	m.t.Helper()
	m.record(func(c *PolicyCalls) { c.GetDraftPolicy += 1 })
	if m.Impl.GetDraftPolicy == nil {
		return policy.Policy{}, notReady(m.t, "GetDraftPolicy")
	}
	return m.Impl.GetDraftPolicy(ctx)
}

func (m *MockPolicyManagementApi) GetPolicyHistory(ctx context.Context) (policy.History, error) {
	m.t.Helper()
	m.record(func(c *PolicyCalls) { c.GetPolicyHistory += 1 })
	if m.Impl.GetPolicyHistory == nil {
		return policy.History{}, notReady(m.t, "GetPolicyHistory")
	}
	return m.Impl.GetPolicyHistory(ctx)
}

func (m *MockPolicyManagementApi) SaveDraftPolicy(ctx context.Context, p policy.Policy) error {
	m.t.Helper()
	m.record(func(c *PolicyCalls) { c.SaveDraftPolicy = append(c.SaveDraftPolicy, p) })
	if m.Impl.SaveDraftPolicy == nil {
		return notReady(m.t, "SaveDraftPolicy")
	}
	return m.Impl.SaveDraftPolicy(ctx, p)
}

func (m *MockPolicyManagementApi) PublishPolicy(ctx context.Context, id uuid.UUID) error {
	m.t.Helper()
	m.record(func(c *PolicyCalls) { c.PublishPolicy = append(c.PublishPolicy, id) })
	if m.Impl.PublishPolicy == nil {
		return notReady(m.t, "PublishPolicy")
	}
	return m.Impl.PublishPolicy(ctx, id)
}

func (m *MockPolicyManagementApi) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	m.t.Helper()
	m.record(func(c *PolicyCalls) { c.DeletePolicy = append(c.DeletePolicy, id) })
	if m.Impl.DeletePolicy == nil {
		return notReady(m.t, "DeletePolicy")
	}
	return m.Impl.DeletePolicy(ctx, id)
}

func (m *MockPolicyManagementApi) DistributeAdaptionPolicy(ctx context.Context) error {
	m.t.Helper()
	m.record(func(c *PolicyCalls) { c.DistributeAdaptionPolicy += 1 })
	if m.Impl.DistributeAdaptionPolicy == nil {
		return notReady(m.t, "DistributeAdaptionPolicy")
	}
	return m.Impl.DistributeAdaptionPolicy(ctx)
}

type GetMetricsArgs struct {
	From time.Time
	To   time.Time
}

type TransactionCalls struct {
	GetTransactions       []transactions.Filter
	GetTransactionDetails []string
	GetMetrics            []GetMetricsArgs
}

type MockTransactionEventApi struct {
	t  *testing.T
	mu sync.Mutex

	Impl struct {
		GetTransactions       func(ctx context.Context, filter transactions.Filter) (transactions.GetTransactionsResponse, error)
		GetTransactionDetails func(ctx context.Context, directory string) (transactions.GetTransactionDetailsResponse, error)
		GetMetrics            func(ctx context.Context, from, to time.Time) (transactions.GetMetricsResponse, error)
	}
	calls TransactionCalls
}

var _ upstream.TransactionEventApi = &MockTransactionEventApi{}

func NewTransactionEventApi(t *testing.T) *MockTransactionEventApi {
	return &MockTransactionEventApi{t: t}
}

// Calls returns a copy of recorded calls.
func (m *MockTransactionEventApi) Calls() TransactionCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return TransactionCalls{
		GetTransactions:       slices.Clone(m.calls.GetTransactions),
		GetTransactionDetails: slices.Clone(m.calls.GetTransactionDetails),
		GetMetrics:            slices.Clone(m.calls.GetMetrics),
	}
}

func (m *MockTransactionEventApi) record(f func(c *TransactionCalls)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f(&m.calls)
}

func (m *MockTransactionEventApi) GetTransactions(ctx context.Context, filter transactions.Filter) (transactions.GetTransactionsResponse, error) {
	m.t.Helper()
	m.record(func(c *TransactionCalls) { c.GetTransactions = append(c.GetTransactions, filter) })
	if m.Impl.GetTransactions == nil {
		return transactions.GetTransactionsResponse{}, notReady(m.t, "GetTransactions")
	}
	return m.Impl.GetTransactions(ctx, filter)
}

func (m *MockTransactionEventApi) GetTransactionDetails(ctx context.Context, directory string) (transactions.GetTransactionDetailsResponse, error) {
	m.t.Helper()
	m.record(func(c *TransactionCalls) { c.GetTransactionDetails = append(c.GetTransactionDetails, directory) })
	if m.Impl.GetTransactionDetails == nil {
		return transactions.GetTransactionDetailsResponse{}, notReady(m.t, "GetTransactionDetails")
	}
	return m.Impl.GetTransactionDetails(ctx, directory)
}

func (m *MockTransactionEventApi) GetMetrics(ctx context.Context, from, to time.Time) (transactions.GetMetricsResponse, error) {
	m.t.Helper()
	m.record(func(c *TransactionCalls) { c.GetMetrics = append(c.GetMetrics, GetMetricsArgs{From: from, To: to}) })
	if m.Impl.GetMetrics == nil {
		return transactions.GetMetricsResponse{}, notReady(m.t, "GetMetrics")
	}
	return m.Impl.GetMetrics(ctx, from, to)
}
