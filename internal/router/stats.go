package router

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errMalformedResponse = errors.New("provider returned an empty response")

// failureReason buckets an attempt error for the stats tracker.
func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		var se interface{ StatusCode() int }
		if errors.As(err, &se) {
			if se.StatusCode() == 429 {
				return "rate_limited"
			}
			return "status"
		}
		if errors.Is(err, errMalformedResponse) {
			return "malformed"
		}
		return "transport"
	}
}

// ProviderStats tracks historical outcomes for one provider.
type ProviderStats struct {
	// Provider is the unique identifier for this provider.
	Provider string

	// TotalRequests is the total number of attempts made against this provider.
	TotalRequests int64

	// SuccessCount is the number of successful attempts.
	SuccessCount int64

	// FailureCount is the number of failed attempts.
	FailureCount int64

	// TotalLatencyMs is the cumulative attempt latency in milliseconds.
	TotalLatencyMs int64

	// LastSuccess is the timestamp of the last successful attempt.
	LastSuccess time.Time

	// LastFailure is the timestamp of the last failed attempt.
	LastFailure time.Time

	// FailureReasons maps failure buckets to occurrence counts.
	FailureReasons map[string]int64
}

// SuccessRate calculates the success rate for this provider.
func (s *ProviderStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 1.0 // No data, assume success
	}
	return float64(s.SuccessCount) / float64(s.TotalRequests)
}

// AverageLatency calculates the average attempt latency for this provider.
func (s *ProviderStats) AverageLatency() time.Duration {
	if s.TotalRequests == 0 {
		return 0
	}
	return time.Duration(s.TotalLatencyMs/s.TotalRequests) * time.Millisecond
}

// StatsTracker records per-provider attempt outcomes with thread-safe access.
// Stats feed the health endpoint and logs; they never influence candidate
// filtering or ordering, which is fixed by configured priority.
type StatsTracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// NewStatsTracker creates an empty tracker.
func NewStatsTracker() *StatsTracker {
	return &StatsTracker{stats: make(map[string]*ProviderStats)}
}

// Record registers one attempt outcome for a provider.
func (t *StatsTracker) Record(provider string, success bool, latency time.Duration, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats, ok := t.stats[provider]
	if !ok {
		stats = &ProviderStats{
			Provider:       provider,
			FailureReasons: make(map[string]int64),
		}
		t.stats[provider] = stats
	}

	stats.TotalRequests++
	stats.TotalLatencyMs += latency.Milliseconds()
	if success {
		stats.SuccessCount++
		stats.LastSuccess = time.Now()
	} else {
		stats.FailureCount++
		stats.LastFailure = time.Now()
		if reason != "" {
			stats.FailureReasons[reason]++
		}
	}
}

// Get returns a copy of the stats for a provider, or nil when none exist.
func (t *StatsTracker) Get(provider string) *ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.stats[provider]
	if !ok {
		return nil
	}
	return copyStats(s)
}

// All returns a snapshot of stats for every tracked provider.
func (t *StatsTracker) All() map[string]*ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]*ProviderStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = copyStats(v)
	}
	return result
}

// Reset clears all recorded outcomes.
func (t *StatsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*ProviderStats)
}

func copyStats(s *ProviderStats) *ProviderStats {
	out := *s
	out.FailureReasons = make(map[string]int64, len(s.FailureReasons))
	for reason, count := range s.FailureReasons {
		out.FailureReasons[reason] = count
	}
	return &out
}
