package scanner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagsense/tagsense/types"
)

func TestRecordScanKeepsSummariesOnly(t *testing.T) {
	tracker := NewContextTracker(5)
	tracker.RecordScan(resultWith("us-east-1", 10, 4))

	got := tracker.Summaries()
	require.Len(t, got, 1)
	assert.Equal(t, types.ResourceEC2, got[0].ResourceType)
	assert.Equal(t, "us-east-1", got[0].Region)
	assert.Equal(t, 10, got[0].TotalCount)
	assert.Equal(t, 4, got[0].UntaggedCount)
	assert.InDelta(t, 0.6, got[0].ComplianceRate(), 1e-9)
}

func TestTrackerEvictsOldest(t *testing.T) {
	tracker := NewContextTracker(3)
	for i := 0; i < 4; i++ {
		tracker.RecordScan(resultWith(fmt.Sprintf("region-%d", i), 1, 0))
	}

	got := tracker.Summaries()
	require.Len(t, got, 3)
	assert.Equal(t, "region-1", got[0].Region)
	assert.Equal(t, "region-3", got[2].Region)
}

func TestRecentContextText(t *testing.T) {
	tracker := NewContextTracker(0)
	assert.Empty(t, tracker.RecentContext())

	tracker.RecordScan(resultWith("us-east-1", 10, 4))
	text := tracker.RecentContext()
	assert.Contains(t, text, "scanned ec2 in us-east-1")
	assert.Contains(t, text, "10 resources")
	assert.Contains(t, text, "4 untagged")
	assert.Contains(t, text, "60% compliant")
}

func TestTrackerClear(t *testing.T) {
	tracker := NewContextTracker(0)
	tracker.RecordScan(resultWith("us-east-1", 1, 1))
	tracker.Clear()
	assert.Empty(t, tracker.Summaries())
	assert.Empty(t, tracker.RecentContext())
}
