package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tagsense/tagsense/types"
)

// DefaultRegionTimeout bounds how long a single region may take
// before it is reported as a partial failure.
const DefaultRegionTimeout = 2 * time.Minute

// Factory builds a scanner bound to one region. Construction errors
// (bad credentials, unknown region) count as that region's failure.
type Factory func(ctx context.Context, region string, rt types.ResourceType) (Scanner, error)

// RegionResult is one region's outcome within a multi-region scan.
type RegionResult struct {
	Region string
	Result *types.ScanResult
	Err    error
}

// MultiRegionResult aggregates per-region outcomes. Failed regions
// never discard the successful ones.
type MultiRegionResult struct {
	ResourceType  types.ResourceType
	Regions       []RegionResult
	TotalCount    int
	UntaggedCount int
}

// FailedRegions lists the regions that errored or timed out.
func (r *MultiRegionResult) FailedRegions() []string {
	var failed []string
	for _, rr := range r.Regions {
		if rr.Err != nil {
			failed = append(failed, rr.Region)
		}
	}
	return failed
}

// Complete reports whether every region scanned successfully.
func (r *MultiRegionResult) Complete() bool {
	return len(r.FailedRegions()) == 0
}

// MultiRegionScanner runs the same scan across regions in parallel.
type MultiRegionScanner struct {
	factory Factory
	timeout time.Duration
	logger  zerolog.Logger
}

// NewMultiRegionScanner builds a fan-out scanner. A non-positive
// timeout selects DefaultRegionTimeout.
func NewMultiRegionScanner(factory Factory, timeout time.Duration, logger zerolog.Logger) *MultiRegionScanner {
	if timeout <= 0 {
		timeout = DefaultRegionTimeout
	}
	return &MultiRegionScanner{factory: factory, timeout: timeout, logger: logger}
}

// ScanRegions scans every region concurrently, one goroutine each,
// and aggregates the outcomes. Region order in the result matches the
// input order regardless of completion order.
func (m *MultiRegionScanner) ScanRegions(ctx context.Context, regions []string, rt types.ResourceType, filter Filter) *MultiRegionResult {
	out := &MultiRegionResult{
		ResourceType: rt,
		Regions:      make([]RegionResult, len(regions)),
	}

	var wg sync.WaitGroup
	for i, region := range regions {
		wg.Add(1)
		go func(i int, region string) {
			defer wg.Done()
			out.Regions[i] = m.scanRegion(ctx, region, rt, filter)
		}(i, region)
	}
	wg.Wait()

	for _, rr := range out.Regions {
		if rr.Err != nil {
			m.logger.Warn().
				Str("region", rr.Region).
				Str("resource_type", string(rt)).
				Err(rr.Err).
				Msg("region scan failed")
			continue
		}
		out.TotalCount += rr.Result.TotalCount
		out.UntaggedCount += rr.Result.UntaggedCount
	}
	return out
}

func (m *MultiRegionScanner) scanRegion(ctx context.Context, region string, rt types.ResourceType, filter Filter) RegionResult {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	s, err := m.factory(ctx, region, rt)
	if err != nil {
		return RegionResult{Region: region, Err: err}
	}
	result, err := s.Scan(ctx, filter)
	if err != nil {
		return RegionResult{Region: region, Err: err}
	}
	return RegionResult{Region: region, Result: result}
}
