package types

// ScanResult holds every resource observed during one scan invocation
// plus the derived tagging aggregates. It is immutable once returned;
// the caller owns it.
type ScanResult struct {
	ResourceType  ResourceType `json:"resource_type"`
	Region        string       `json:"region"`
	Resources     []Resource   `json:"resources"`
	TotalCount    int          `json:"total_count"`
	UntaggedCount int          `json:"untagged_count"`
}

// NewScanResult builds a ScanResult from scanned resources, computing
// the aggregates. UntaggedCount can never exceed TotalCount.
func NewScanResult(rt ResourceType, region string, resources []Resource) *ScanResult {
	untagged := 0
	for i := range resources {
		if !resources[i].IsTagged() {
			untagged++
		}
	}
	return &ScanResult{
		ResourceType:  rt,
		Region:        region,
		Resources:     resources,
		TotalCount:    len(resources),
		UntaggedCount: untagged,
	}
}

// ComplianceRate is the fraction of scanned resources with at least one
// tag, in [0, 1]. An empty scan reports 0.
func (s *ScanResult) ComplianceRate() float64 {
	if s.TotalCount == 0 {
		return 0
	}
	return 1 - float64(s.UntaggedCount)/float64(s.TotalCount)
}

// Untagged returns the subset of resources without any tags, preserving
// scan order.
func (s *ScanResult) Untagged() []Resource {
	var out []Resource
	for i := range s.Resources {
		if !s.Resources[i].IsTagged() {
			out = append(out, s.Resources[i])
		}
	}
	return out
}

// Tagged returns the subset of resources with at least one tag.
func (s *ScanResult) Tagged() []Resource {
	var out []Resource
	for i := range s.Resources {
		if s.Resources[i].IsTagged() {
			out = append(out, s.Resources[i])
		}
	}
	return out
}
