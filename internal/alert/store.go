package alert

import (
	"fmt"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// Store persists the deepest threshold notified per symbol for the current day.
type Store interface {
	// Load returns today's thresholds. A missing, unreadable or stale record
	// yields an empty map.
	Load() map[string]float64
	// Save records threshold for symbol, keeping the other symbols of today.
	Save(symbol string, threshold float64) error
	// ResetIfStale removes a record written on an earlier day.
	ResetIfStale() error
}

// StoreError is a non-fatal threshold persistence failure
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("threshold store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Day formats t as the calendar day used to stamp threshold records
func Day(t time.Time) string {
	return t.Format(dayLayout)
}

// MemoryStore keeps thresholds in process memory
type MemoryStore struct {
	mu         sync.Mutex
	now        func() time.Time
	day        string
	thresholds map[string]float64
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, thresholds: make(map[string]float64)}
}

func (m *MemoryStore) Load() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64)
	if m.day != Day(m.now()) {
		return out
	}
	for k, v := range m.thresholds {
		out[k] = v
	}
	return out
}

func (m *MemoryStore) Save(symbol string, threshold float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := Day(m.now())
	if m.day != today {
		m.day = today
		m.thresholds = make(map[string]float64)
	}
	m.thresholds[symbol] = threshold
	return nil
}

func (m *MemoryStore) ResetIfStale() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.day != "" && m.day != Day(m.now()) {
		m.day = ""
		m.thresholds = make(map[string]float64)
	}
	return nil
}
