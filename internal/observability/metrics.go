package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

type SourceStats struct {
	Successes    int64
	Failures     int64
	ItemsTotal   int64
	LastItems    int
	LastDuration time.Duration
	LastError    string
	LastRunTime  time.Time
}

type Metrics struct {
	mu sync.RWMutex

	CategoryRequests map[string]int64
	Sources          map[string]*SourceStats
	BudgetSpent      int64
	BudgetRejected   int64
	StartedAt        time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		CategoryRequests: make(map[string]int64),
		Sources:          make(map[string]*SourceStats),
		StartedAt:        time.Now(),
	}
}

func (m *Metrics) source(id string) *SourceStats {
	s, ok := m.Sources[id]
	if !ok {
		s = &SourceStats{}
		m.Sources[id] = s
	}
	return s
}

func (m *Metrics) IncrementCategoryRequests(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CategoryRequests[category]++
}

func (m *Metrics) RecordSuccess(id string, items int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.source(id)
	s.Successes++
	s.ItemsTotal += int64(items)
	s.LastItems = items
	s.LastDuration = duration
	s.LastError = ""
	s.LastRunTime = time.Now()
}

func (m *Metrics) RecordFailure(id string, errMsg string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.source(id)
	s.Failures++
	s.LastItems = 0
	s.LastDuration = duration
	s.LastError = errMsg
	s.LastRunTime = time.Now()
}

func (m *Metrics) IncrementBudgetSpent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BudgetSpent++
}

func (m *Metrics) IncrementBudgetRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BudgetRejected++
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make(map[string]interface{}, len(m.Sources))
	for id, s := range m.Sources {
		sources[id] = map[string]interface{}{
			"successes":        s.Successes,
			"failures":         s.Failures,
			"items_total":      s.ItemsTotal,
			"last_items":       s.LastItems,
			"last_duration_ms": s.LastDuration.Milliseconds(),
			"last_error":       s.LastError,
			"last_run_time":    s.LastRunTime.Format(time.RFC3339),
		}
	}

	categories := make(map[string]int64, len(m.CategoryRequests))
	for c, n := range m.CategoryRequests {
		categories[c] = n
	}

	return map[string]interface{}{
		"uptime_s":          int64(time.Since(m.StartedAt).Seconds()),
		"category_requests": categories,
		"sources":           sources,
		"budget_spent":      m.BudgetSpent,
		"budget_rejected":   m.BudgetRejected,
	}
}

// Dump writes the current stats as JSON to path.
func (m *Metrics) Dump(path string) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(m.GetStats(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
