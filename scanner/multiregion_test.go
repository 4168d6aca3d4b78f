package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagsense/tagsense/types"
)

// fakeScanner returns a fixed result or error, optionally blocking
// until the context is done.
type fakeScanner struct {
	result *types.ScanResult
	err    error
	hang   bool
}

func (f *fakeScanner) Scan(ctx context.Context, _ Filter) (*types.ScanResult, error) {
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeScanner) ApplyTags(context.Context, string, map[string]string) error { return nil }
func (f *fakeScanner) ResourceType() types.ResourceType                           { return types.ResourceEC2 }

func resultWith(region string, total, untagged int) *types.ScanResult {
	resources := make([]types.Resource, total)
	for i := range resources {
		resources[i] = types.Resource{ID: "i-0", Type: types.ResourceEC2, Region: region}
		if i >= untagged {
			resources[i].Tags = map[string]string{"Owner": "team"}
		}
	}
	return types.NewScanResult(types.ResourceEC2, region, resources)
}

func TestScanRegionsAggregates(t *testing.T) {
	scanners := map[string]*fakeScanner{
		"us-east-1": {result: resultWith("us-east-1", 10, 4)},
		"us-west-2": {result: resultWith("us-west-2", 5, 1)},
	}
	factory := func(_ context.Context, region string, _ types.ResourceType) (Scanner, error) {
		return scanners[region], nil
	}

	m := NewMultiRegionScanner(factory, time.Second, zerolog.Nop())
	out := m.ScanRegions(context.Background(), []string{"us-east-1", "us-west-2"}, types.ResourceEC2, Filter{})

	assert.True(t, out.Complete())
	assert.Equal(t, 15, out.TotalCount)
	assert.Equal(t, 5, out.UntaggedCount)
	require.Len(t, out.Regions, 2)
	assert.Equal(t, "us-east-1", out.Regions[0].Region, "result order follows input order")
	assert.Equal(t, "us-west-2", out.Regions[1].Region)
}

func TestScanRegionsPartialFailure(t *testing.T) {
	scanErr := errors.New("throttled past retry budget")
	scanners := map[string]*fakeScanner{
		"us-east-1": {result: resultWith("us-east-1", 8, 2)},
		"eu-west-1": {err: scanErr},
	}
	factory := func(_ context.Context, region string, _ types.ResourceType) (Scanner, error) {
		return scanners[region], nil
	}

	m := NewMultiRegionScanner(factory, time.Second, zerolog.Nop())
	out := m.ScanRegions(context.Background(), []string{"us-east-1", "eu-west-1"}, types.ResourceEC2, Filter{})

	assert.False(t, out.Complete())
	assert.Equal(t, []string{"eu-west-1"}, out.FailedRegions())
	assert.Equal(t, 8, out.TotalCount, "failed region must not discard successful results")
	require.NotNil(t, out.Regions[0].Result)
	assert.ErrorIs(t, out.Regions[1].Err, scanErr)
}

func TestScanRegionsTimeout(t *testing.T) {
	scanners := map[string]*fakeScanner{
		"us-east-1":  {result: resultWith("us-east-1", 3, 0)},
		"ap-south-1": {hang: true},
	}
	factory := func(_ context.Context, region string, _ types.ResourceType) (Scanner, error) {
		return scanners[region], nil
	}

	m := NewMultiRegionScanner(factory, 20*time.Millisecond, zerolog.Nop())
	out := m.ScanRegions(context.Background(), []string{"us-east-1", "ap-south-1"}, types.ResourceEC2, Filter{})

	assert.Equal(t, []string{"ap-south-1"}, out.FailedRegions())
	assert.ErrorIs(t, out.Regions[1].Err, context.DeadlineExceeded)
	assert.Equal(t, 3, out.TotalCount)
}

func TestScanRegionsFactoryError(t *testing.T) {
	factory := func(_ context.Context, region string, _ types.ResourceType) (Scanner, error) {
		return nil, errors.New("no credentials for " + region)
	}

	m := NewMultiRegionScanner(factory, time.Second, zerolog.Nop())
	out := m.ScanRegions(context.Background(), []string{"us-east-1"}, types.ResourceEC2, Filter{})

	assert.False(t, out.Complete())
	assert.Equal(t, 0, out.TotalCount)
}
