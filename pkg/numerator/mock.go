package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockNumerator is an in-memory numbering implementation for tests and
// local development. Counters are per document type and never persist.
type MockNumerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMock creates an empty in-memory numerator.
func NewMock() *MockNumerator {
	return &MockNumerator{counters: make(map[string]int64)}
}

// Next implements the Numerator interfaces of the order workflows.
func (m *MockNumerator) Next(ctx context.Context, documentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[documentType]++
	return fmt.Sprintf("%s-%s-%05d", documentType, time.Now().Format("2006"), m.counters[documentType]), nil
}
