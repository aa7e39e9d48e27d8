package observability

import "sync"

// Metrics provides basic in-memory counters for one pipeline run.
type Metrics struct {
	mu             sync.Mutex
	acceptedCount  int64
	violationCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		violationCount: make(map[string]int64),
	}
}

// RecordAccepted increments the accepted-record counter.
func (m *Metrics) RecordAccepted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptedCount++
}

// RecordViolations increments the counter of each violation code.
func (m *Metrics) RecordViolations(codes []string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range codes {
		m.violationCount[code]++
	}
}

// Accepted returns the accepted-record count.
func (m *Metrics) Accepted() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acceptedCount
}

// ViolationCounts returns a copy of the per-code tallies.
func (m *Metrics) ViolationCounts() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.violationCount))
	for code, n := range m.violationCount {
		out[code] = n
	}
	return out
}
