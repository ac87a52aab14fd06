package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for _, ms := range []int{50, 10, 40, 20, 30} {
		tracker.Observe(time.Duration(ms) * time.Millisecond)
	}

	if tracker.Count() != 5 {
		t.Fatalf("expected count 5, got %d", tracker.Count())
	}
	if got := tracker.Percentile(0); got != 10*time.Millisecond {
		t.Fatalf("expected p0 10ms, got %v", got)
	}
	if got := tracker.Percentile(100); got != 50*time.Millisecond {
		t.Fatalf("expected p100 50ms, got %v", got)
	}
	if p95 := tracker.Percentile(95); p95 < 40*time.Millisecond {
		t.Fatalf("expected p95 >= 40ms, got %v", p95)
	}
}

func TestLatencyTrackerWrapsAround(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
	if got := tracker.Percentile(0); got != 8*time.Millisecond {
		t.Fatalf("expected oldest retained sample 8ms, got %v", got)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	if got := NewLatencyTracker(0).Percentile(95); got != 0 {
		t.Fatalf("expected zero percentile on empty tracker, got %v", got)
	}
}
