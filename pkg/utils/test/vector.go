package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/wcagrag/pkg/vector"
	"github.com/papercomputeco/wcagrag/pkg/vector/memory"
)

// MockVectorDriver is an in-memory vector driver that records calls and can
// be told to fail specific operations.
type MockVectorDriver struct {
	*memory.Driver

	mu sync.Mutex

	// Fail* errors are returned by the matching operation when set.
	FailCreate  error
	FailAdd     error
	FailPromote error
	FailQuery   error
	FailHas     error

	Created  []string
	Dropped  []string
	Promoted []string
	Queries  int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{Driver: memory.NewDriver()}
}

func (m *MockVectorDriver) CreateCollection(ctx context.Context, name string, dimensions uint) error {
	m.mu.Lock()
	m.Created = append(m.Created, name)
	err := m.FailCreate
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Driver.CreateCollection(ctx, name, dimensions)
}

func (m *MockVectorDriver) DropCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	m.Dropped = append(m.Dropped, name)
	m.mu.Unlock()
	return m.Driver.DropCollection(ctx, name)
}

func (m *MockVectorDriver) HasCollection(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	err := m.FailHas
	m.mu.Unlock()
	if err != nil {
		return false, err
	}
	return m.Driver.HasCollection(ctx, name)
}

func (m *MockVectorDriver) Promote(ctx context.Context, staging, name string) error {
	m.mu.Lock()
	err := m.FailPromote
	if err == nil {
		m.Promoted = append(m.Promoted, staging)
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Driver.Promote(ctx, staging, name)
}

func (m *MockVectorDriver) Add(ctx context.Context, collection string, docs []vector.Document) error {
	m.mu.Lock()
	err := m.FailAdd
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Driver.Add(ctx, collection, docs)
}

func (m *MockVectorDriver) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	m.Queries++
	err := m.FailQuery
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.Driver.Query(ctx, collection, embedding, topK)
}

// CreatedCount returns how many collections were created, including failed
// attempts.
func (m *MockVectorDriver) CreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

var _ vector.Driver = (*MockVectorDriver)(nil)
