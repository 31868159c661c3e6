package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
)

type MockCall struct {
	Method string
	Args   []interface{}
}

// MockKVStore is a mock implementation of KVStore backed by a map
type MockKVStore struct {
	mu     sync.RWMutex
	values map[string]string

	// Function hooks for custom behavior
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error

	// Call tracking
	Calls []MockCall
}

func NewMockKVStore() *MockKVStore {
	return &MockKVStore{
		values: make(map[string]string),
		Calls:  make([]MockCall, 0),
	}
}

func (m *MockKVStore) Get(ctx context.Context, key string) (string, error) {
	m.record("Get", key)

	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", repositories.ErrKeyNotFound
	}
	return v, nil
}

func (m *MockKVStore) Set(ctx context.Context, key, value string) error {
	m.record("Set", key, value)

	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockKVStore) Delete(ctx context.Context, key string) error {
	m.record("Delete", key)

	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Keys lists stored keys with prefix
func (m *MockKVStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.record("Keys", prefix)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Put stores a raw value without recording a call
func (m *MockKVStore) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Raw returns the stored value without recording a call
func (m *MockKVStore) Raw(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// CallCount returns how many times method was called
func (m *MockKVStore) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockKVStore) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

// MockAccountsSource is a mock implementation of AccountsSource
type MockAccountsSource struct {
	mu       sync.RWMutex
	response *entities.AccountsResponse

	// Function hooks for custom behavior
	FetchAccountsFunc func(ctx context.Context, addresses []string) (*entities.AccountsResponse, error)

	// Call tracking
	Calls []MockCall
}

func NewMockAccountsSource() *MockAccountsSource {
	return &MockAccountsSource{
		response: &entities.AccountsResponse{},
		Calls:    make([]MockCall, 0),
	}
}

// SetResponse sets the response returned when no hook is set
func (m *MockAccountsSource) SetResponse(resp *entities.AccountsResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = resp
}

func (m *MockAccountsSource) FetchAccounts(ctx context.Context, addresses []string) (*entities.AccountsResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "FetchAccounts", Args: []interface{}{addresses}})
	m.mu.Unlock()

	if m.FetchAccountsFunc != nil {
		return m.FetchAccountsFunc(ctx, addresses)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.response, nil
}

// CallCount returns how many fetches were made
func (m *MockAccountsSource) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Calls)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}
