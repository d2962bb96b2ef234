package orchestrator

import "sync"

// Metrics aggregates orchestrator counters. All methods are safe for
// concurrent use.
type Metrics struct {
	mu               sync.Mutex
	totalRequests    int64
	successes        int64
	failures         int64
	cacheHits        int64
	fallbackUses     int64
	totalTokens      int64
	totalCost        float64
	providerFailures map[string]int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	TotalRequests    int64            `json:"total_requests"`
	Successes        int64            `json:"successes"`
	Failures         int64            `json:"failures"`
	CacheHits        int64            `json:"cache_hits"`
	FallbackUses     int64            `json:"fallback_uses"`
	TotalTokens      int64            `json:"total_tokens"`
	TotalCost        float64          `json:"total_cost"`
	ProviderFailures map[string]int64 `json:"provider_failures"`
}

func newMetrics() *Metrics {
	return &Metrics{providerFailures: make(map[string]int64)}
}

func (m *Metrics) recordRequest() {
	m.mu.Lock()
	m.totalRequests++
	m.mu.Unlock()
}

func (m *Metrics) recordSuccess(tokens int, cost float64, cacheHit, fallback bool) {
	m.mu.Lock()
	m.successes++
	m.totalTokens += int64(tokens)
	m.totalCost += cost
	if cacheHit {
		m.cacheHits++
	}
	if fallback {
		m.fallbackUses++
	}
	m.mu.Unlock()
}

func (m *Metrics) recordFailure() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

func (m *Metrics) recordProviderFailure(name string) {
	m.mu.Lock()
	m.providerFailures[name]++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	failures := make(map[string]int64, len(m.providerFailures))
	for k, v := range m.providerFailures {
		failures[k] = v
	}
	return MetricsSnapshot{
		TotalRequests:    m.totalRequests,
		Successes:        m.successes,
		Failures:         m.failures,
		CacheHits:        m.cacheHits,
		FallbackUses:     m.fallbackUses,
		TotalTokens:      m.totalTokens,
		TotalCost:        m.totalCost,
		ProviderFailures: failures,
	}
}
