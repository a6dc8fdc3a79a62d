package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	Searches           int64
	SearchFailures     int64
	CandidatesSeen     int64
	DuplicatesFiltered int64
	NewsDelivered      int64
	ReportsPushed      int64
	PushFailures       int64
	PersistFailures    int64

	// Timings
	LastCheckDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool

	sources map[string]func() map[string]interface{}
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

// AddSource includes fn's stats under name in GetStats, e.g. an API quota.
func (m *Metrics) AddSource(name string, fn func() map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sources == nil {
		m.sources = make(map[string]func() map[string]interface{})
	}
	m.sources[name] = fn
}

func (m *Metrics) IncrementSearches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches++
}

func (m *Metrics) IncrementSearchFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchFailures++
}

func (m *Metrics) AddCandidates(seen, duplicates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesSeen += int64(seen)
	m.DuplicatesFiltered += int64(duplicates)
}

func (m *Metrics) AddNewsDelivered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NewsDelivered += int64(n)
}

func (m *Metrics) IncrementReportsPushed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportsPushed++
}

func (m *Metrics) IncrementPushFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PushFailures++
}

func (m *Metrics) IncrementPersistFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistFailures++
}

func (m *Metrics) RecordCheckDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastCheckDuration = d
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"searches":            m.Searches,
		"search_failures":     m.SearchFailures,
		"candidates_seen":     m.CandidatesSeen,
		"duplicates_filtered": m.DuplicatesFiltered,
		"news_delivered":      m.NewsDelivered,
		"reports_pushed":      m.ReportsPushed,
		"push_failures":       m.PushFailures,
		"persist_failures":    m.PersistFailures,
		"last_check_time_ms":  m.LastCheckDuration.Milliseconds(),
		"last_run_time":       m.LastRunTime.Format(time.RFC3339),
		"last_error_time":     m.LastErrorTime.Format(time.RFC3339),
		"last_error":          m.LastError,
		"is_healthy":          m.IsHealthy,
	}
	for name, fn := range m.sources {
		stats[name] = fn()
	}
	return stats
}
