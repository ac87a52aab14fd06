package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded window of parse/produce durations so the
// service can report percentiles without a metrics backend.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples []time.Duration
	next    int
	full    bool
}

// NewLatencyTracker creates a tracker holding the most recent size samples.
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 512
	}
	return &LatencyTracker{samples: make([]time.Duration, size)}
}

// Observe records d, overwriting the oldest sample once the window is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.samples[l.next] = d
	l.next++
	if l.next == len(l.samples) {
		l.next = 0
		l.full = true
	}
}

// Count returns the number of samples currently held.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.countLocked()
}

// Percentile returns the p-th percentile (0-100) using nearest-rank on the
// sorted window. Zero when empty.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	n := l.countLocked()
	window := append([]time.Duration(nil), l.samples[:n]...)
	l.mu.RUnlock()

	if n == 0 {
		return 0
	}
	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })

	switch {
	case p <= 0:
		return window[0]
	case p >= 100:
		return window[n-1]
	}
	return window[int((p/100.0)*float64(n-1))]
}

func (l *LatencyTracker) countLocked() int {
	if l.full {
		return len(l.samples)
	}
	return l.next
}
