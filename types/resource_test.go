package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResource_IsTagged(t *testing.T) {
	tagged := Resource{ID: "i-abc123", Type: ResourceEC2, Tags: map[string]string{"Owner": "platform"}}
	untagged := Resource{ID: "i-def456", Type: ResourceEC2}

	assert.True(t, tagged.IsTagged())
	assert.False(t, untagged.IsTagged())
}

func TestResource_HasRequiredTags(t *testing.T) {
	r := Resource{
		ID:   "i-abc123",
		Type: ResourceEC2,
		Tags: map[string]string{"Owner": "platform", "Environment": "prod"},
	}

	assert.True(t, r.HasRequiredTags([]string{"Owner"}))
	assert.True(t, r.HasRequiredTags([]string{"Owner", "Environment"}))
	assert.False(t, r.HasRequiredTags([]string{"Owner", "CostCenter"}))
	assert.True(t, r.HasRequiredTags(nil))
}

func TestResource_CloneTags(t *testing.T) {
	r := Resource{ID: "vol-1", Type: ResourceEBS, Tags: map[string]string{"Team": "data"}}

	clone := r.CloneTags()
	clone["Team"] = "changed"

	assert.Equal(t, "data", r.Tags["Team"])

	empty := Resource{ID: "vol-2", Type: ResourceEBS}
	assert.NotNil(t, empty.CloneTags())
}

func TestParseResourceType(t *testing.T) {
	rt, err := ParseResourceType("lambda")
	assert.NoError(t, err)
	assert.Equal(t, ResourceLambda, rt)

	_, err = ParseResourceType("dynamodb")
	assert.Error(t, err)
}

func TestScanResult_Aggregates(t *testing.T) {
	resources := []Resource{
		{ID: "i-1", Type: ResourceEC2, Tags: map[string]string{"Owner": "a"}},
		{ID: "i-2", Type: ResourceEC2},
		{ID: "i-3", Type: ResourceEC2},
		{ID: "i-4", Type: ResourceEC2, Tags: map[string]string{"Owner": "b"}},
	}

	result := NewScanResult(ResourceEC2, "us-east-1", resources)

	assert.Equal(t, 4, result.TotalCount)
	assert.Equal(t, 2, result.UntaggedCount)
	assert.LessOrEqual(t, result.UntaggedCount, result.TotalCount)
	assert.InDelta(t, 0.5, result.ComplianceRate(), 1e-9)
	assert.Len(t, result.Untagged(), 2)
	assert.Len(t, result.Tagged(), 2)
	assert.Equal(t, "i-2", result.Untagged()[0].ID)
}

func TestScanResult_Empty(t *testing.T) {
	result := NewScanResult(ResourceS3, "eu-west-1", nil)

	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, 0.0, result.ComplianceRate())
	assert.Empty(t, result.Untagged())
}
