package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	messageCount map[string]int64
	failureCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		messageCount: make(map[string]int64),
		failureCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordMessage increments the per-intent counter for handled messages.
func (m *Metrics) RecordMessage(intent string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageCount[intent]++
}

// RecordFailure increments the counter for a failure code.
func (m *Metrics) RecordFailure(code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureCount[code]++
}

// MessageCounts returns a snapshot of per-intent counters.
func (m *Metrics) MessageCounts() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.messageCount))
	for k, v := range m.messageCount {
		out[k] = v
	}
	return out
}

// FailureCounts returns a snapshot of failure counters.
func (m *Metrics) FailureCounts() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.failureCount))
	for k, v := range m.failureCount {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
