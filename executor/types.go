package executor

import (
	"context"
	"time"

	"github.com/tagsense/tagsense/types"
)

// Tagger is the mutation surface the engine drives. Every AWS scanner
// satisfies it. Validate checks a prospective operation without
// touching the provider API; dry runs report its verdict.
type Tagger interface {
	Validate(resourceID string, tags map[string]string) error
	ApplyTags(ctx context.Context, resourceID string, tags map[string]string) error
	RemoveTags(ctx context.Context, resourceID string, keys []string) error
}

// OperationStatus tracks one resource through a bulk run.
type OperationStatus string

const (
	StatusPending    OperationStatus = "pending"
	StatusSucceeded  OperationStatus = "succeeded"
	StatusFailed     OperationStatus = "failed"
	StatusRolledBack OperationStatus = "rolled_back"
	StatusSkipped    OperationStatus = "skipped"
)

// FailureClass tells callers whether a failed operation is worth
// retrying.
type FailureClass string

const (
	FailureValidation FailureClass = "validation"
	FailureTransient  FailureClass = "transient"
	FailurePermanent  FailureClass = "permanent"
)

// TagOperation is one resource's slot in a bulk run. OriginalTags is
// the pre-mutation snapshot rollback restores from.
type TagOperation struct {
	ResourceID   string             `json:"resource_id"`
	ResourceType types.ResourceType `json:"resource_type"`
	Region       string             `json:"region"`
	Tags         map[string]string  `json:"tags"`
	OriginalTags map[string]string  `json:"original_tags"`
	Status       OperationStatus    `json:"status"`
	Reason       string             `json:"reason,omitempty"`
	Batch        int                `json:"batch"`
}

// Failure is one failed resource with its classification.
type Failure struct {
	ResourceID string       `json:"resource_id"`
	Reason     string       `json:"reason"`
	Class      FailureClass `json:"class"`
}

// BulkTagResult is the outcome of a bulk tagging run. Attempted
// counts operations actually issued (or simulated in a dry run);
// resources in batches skipped by cancellation or a rollback abort
// show up in Skipped, not Attempted.
type BulkTagResult struct {
	StartTime         time.Time      `json:"start_time"`
	Duration          time.Duration  `json:"duration"`
	Attempted         int            `json:"attempted"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	Skipped           int            `json:"skipped"`
	Failures          []Failure      `json:"failures,omitempty"`
	RollbackTriggered bool           `json:"rollback_triggered"`
	RollbackSucceeded bool           `json:"rollback_succeeded"`
	DryRun            bool           `json:"dry_run"`
	Operations        []TagOperation `json:"operations"`
}

// PartialFailure reports whether some resources were tagged and
// others were not.
func (r *BulkTagResult) PartialFailure() bool {
	return r.Succeeded > 0 && r.Failed > 0
}

// Options tunes a bulk tagging run.
type Options struct {
	// BatchSize partitions the resource list; DefaultBatchSize when
	// non-positive.
	BatchSize int
	// DryRun validates and simulates without mutating anything.
	DryRun bool
	// Rollback restores a failing batch's already-tagged resources
	// and aborts the remaining batches.
	Rollback bool
	// ClassifyTransient distinguishes retryable provider failures
	// when recording them. Nil treats all non-validation failures as
	// permanent.
	ClassifyTransient func(error) bool
}

// DefaultBatchSize bounds how many resources share one rollback scope.
const DefaultBatchSize = 50
