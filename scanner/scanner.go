// Package scanner defines the contract every resource scanner
// implements and the cross-cutting pieces built on it: multi-region
// fan-out and scan-context tracking.
package scanner

import (
	"context"
	"fmt"

	"github.com/tagsense/tagsense/types"
)

// Scanner enumerates resources of one type in one region and can
// mutate their tags.
type Scanner interface {
	// Scan lists resources matching the filter. A returned result is
	// complete; pagination failures surface as errors, never as a
	// silently truncated result.
	Scan(ctx context.Context, filter Filter) (*types.ScanResult, error)

	// ApplyTags merges tags onto the resource. Implementations
	// validate the ID shape and tag keys before any remote call.
	ApplyTags(ctx context.Context, resourceID string, tags map[string]string) error

	// ResourceType reports which resource type this scanner covers.
	ResourceType() types.ResourceType
}

// Filter narrows a scan. Scanners ignore fields that do not apply to
// their resource type.
type Filter struct {
	// States matches lifecycle states (EC2 instances, EBS volumes).
	States []string
	// Runtimes matches Lambda runtimes.
	Runtimes []string
	// Engines matches RDS engines.
	Engines []string
	// NamePrefix matches S3 bucket names.
	NamePrefix string
	// UntaggedOnly keeps only resources with no tags at all.
	UntaggedOnly bool
}

// ValidationError reports malformed caller input. It is never
// retried and never falls back.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// MatchState reports whether state passes the filter's States list.
// An empty list matches everything.
func (f Filter) MatchState(state string) bool {
	return matchAny(f.States, state)
}

// MatchRuntime reports whether runtime passes the filter's Runtimes list.
func (f Filter) MatchRuntime(runtime string) bool {
	return matchAny(f.Runtimes, runtime)
}

// MatchEngine reports whether engine passes the filter's Engines list.
func (f Filter) MatchEngine(engine string) bool {
	return matchAny(f.Engines, engine)
}

func matchAny(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
