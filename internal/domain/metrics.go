package domain

import (
	"sync"
	"time"
)

// Metrics accumulates usage counters across one run. Parallel aspects
// update it concurrently, so all access locks.
type Metrics struct {
	mu              sync.Mutex
	apiCalls        int
	promptChars     int64
	responseChars   int64
	cacheHits       int
	aspectDurations map[string]time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{aspectDurations: make(map[string]time.Duration)}
}

// RecordCall counts one completed AI call and its payload sizes.
func (m *Metrics) RecordCall(promptLen, responseLen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiCalls++
	m.promptChars += int64(promptLen)
	m.responseChars += int64(responseLen)
}

// RecordCacheHit counts a completion served from cache.
func (m *Metrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

// RecordAspect stores how long one aspect took.
func (m *Metrics) RecordAspect(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aspectDurations[name] = d
}

// Snapshot flattens the counters into a serializable report section.
// Token counts are estimated at four characters per token when the
// provider reports none.
func (m *Metrics) Snapshot(total time.Duration) RunMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	durations := make(map[string]string, len(m.aspectDurations))
	for name, d := range m.aspectDurations {
		durations[name] = d.Round(time.Millisecond).String()
	}
	return RunMetrics{
		APICalls:        m.apiCalls,
		EstimatedTokens: (m.promptChars + m.responseChars) / 4,
		CacheHits:       m.cacheHits,
		Duration:        total.Round(time.Millisecond).String(),
		AspectDurations: durations,
	}
}

// RunMetrics is the metrics section of the final report.
type RunMetrics struct {
	APICalls        int               `json:"api_calls"`
	EstimatedTokens int64             `json:"estimated_tokens"`
	CacheHits       int               `json:"cache_hits"`
	Duration        string            `json:"duration"`
	AspectDurations map[string]string `json:"aspect_durations,omitempty"`
}
