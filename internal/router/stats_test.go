package router

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatsTracker_RecordAndRates(t *testing.T) {
	tracker := NewStatsTracker()

	tracker.Record("openrouter", true, 120*time.Millisecond, "")
	tracker.Record("openrouter", false, 80*time.Millisecond, "timeout")
	tracker.Record("openrouter", false, 40*time.Millisecond, "timeout")

	s := tracker.Get("openrouter")
	if s == nil {
		t.Fatal("expected stats for openrouter")
	}
	if s.TotalRequests != 3 || s.SuccessCount != 1 || s.FailureCount != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if got := s.SuccessRate(); got < 0.33 || got > 0.34 {
		t.Errorf("success rate = %f, want ~0.333", got)
	}
	if s.FailureReasons["timeout"] != 2 {
		t.Errorf("timeout reason count = %d, want 2", s.FailureReasons["timeout"])
	}
	if s.AverageLatency() != 80*time.Millisecond {
		t.Errorf("average latency = %v, want 80ms", s.AverageLatency())
	}
}

func TestStatsTracker_UnknownProviderAssumesSuccess(t *testing.T) {
	s := &ProviderStats{Provider: "fresh"}
	if s.SuccessRate() != 1.0 {
		t.Errorf("fresh provider success rate = %f, want 1.0", s.SuccessRate())
	}
	if NewStatsTracker().Get("missing") != nil {
		t.Error("expected nil stats for untracked provider")
	}
}

func TestStatsTracker_SnapshotIsolation(t *testing.T) {
	tracker := NewStatsTracker()
	tracker.Record("a", false, time.Millisecond, "transport")

	snap := tracker.All()
	snap["a"].FailureReasons["transport"] = 99
	snap["a"].FailureCount = 99

	if s := tracker.Get("a"); s.FailureCount != 1 || s.FailureReasons["transport"] != 1 {
		t.Errorf("snapshot mutation leaked into tracker: %+v", s)
	}
}

type statusError struct{ code int }

func (e statusError) Error() string   { return "status error" }
func (e statusError) StatusCode() int { return e.code }

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", context.DeadlineExceeded, "timeout"},
		{"rate limited", statusError{code: 429}, "rate_limited"},
		{"bad status", statusError{code: 502}, "status"},
		{"malformed", errMalformedResponse, "malformed"},
		{"transport", errors.New("connection refused"), "transport"},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureReason(tt.err); got != tt.want {
				t.Errorf("failureReason(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
