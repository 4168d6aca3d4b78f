package scanner

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tagsense/tagsense/types"
)

// DefaultTrackerCapacity bounds how many scan summaries are retained.
const DefaultTrackerCapacity = 20

// ScanSummary is the compact record of one completed scan. Only
// aggregates are kept; resource lists never enter the tracker.
type ScanSummary struct {
	At            time.Time
	ResourceType  types.ResourceType
	Region        string
	TotalCount    int
	UntaggedCount int
}

// ComplianceRate mirrors types.ScanResult.ComplianceRate for the summary.
func (s ScanSummary) ComplianceRate() float64 {
	if s.TotalCount == 0 {
		return 0
	}
	return 1 - float64(s.UntaggedCount)/float64(s.TotalCount)
}

// ContextTracker remembers recent scan outcomes so the assistant can
// answer questions about what was just observed. Safe for concurrent
// use.
type ContextTracker struct {
	mu        sync.Mutex
	summaries []ScanSummary
	cap       int
	now       func() time.Time
}

// NewContextTracker builds a tracker holding at most capacity
// summaries. Non-positive capacity selects DefaultTrackerCapacity.
func NewContextTracker(capacity int) *ContextTracker {
	if capacity <= 0 {
		capacity = DefaultTrackerCapacity
	}
	return &ContextTracker{
		summaries: make([]ScanSummary, 0, capacity),
		cap:       capacity,
		now:       time.Now,
	}
}

// RecordScan stores a summary of the result, evicting the oldest when full.
func (t *ContextTracker) RecordScan(result *types.ScanResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.summaries) == t.cap {
		copy(t.summaries, t.summaries[1:])
		t.summaries = t.summaries[:t.cap-1]
	}
	t.summaries = append(t.summaries, ScanSummary{
		At:            t.now(),
		ResourceType:  result.ResourceType,
		Region:        result.Region,
		TotalCount:    result.TotalCount,
		UntaggedCount: result.UntaggedCount,
	})
}

// Summaries returns the retained summaries oldest-first. The slice is
// a copy.
func (t *ContextTracker) Summaries() []ScanSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ScanSummary, len(t.summaries))
	copy(out, t.summaries)
	return out
}

// RecentContext renders the retained summaries as prompt text, most
// recent last. Empty string when nothing has been scanned.
func (t *ContextTracker) RecentContext() string {
	summaries := t.Summaries()
	if len(summaries) == 0 {
		return ""
	}

	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "- scanned %s in %s: %d resources, %d untagged, %.0f%% compliant\n",
			s.ResourceType, s.Region, s.TotalCount, s.UntaggedCount, s.ComplianceRate()*100)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Clear drops all retained summaries.
func (t *ContextTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summaries = t.summaries[:0]
}
