// Package executor applies tags to resources in bulk. Work is
// partitioned into batches; with rollback enabled a failing batch is
// undone and later batches never start, so the blast radius of a
// partial failure is one batch.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/telemetry"
	"github.com/tagsense/tagsense/types"
)

// Engine runs bulk tagging against a Tagger.
type Engine struct {
	tagger Tagger
	logger zerolog.Logger
}

// NewEngine builds a bulk tagging engine.
func NewEngine(tagger Tagger, logger zerolog.Logger) *Engine {
	return &Engine{tagger: tagger, logger: logger}
}

// TagResources applies tags to every resource, in batches. The
// resources are scan-time snapshots; their Tags field is the
// pre-mutation state rollback restores from.
func (e *Engine) TagResources(ctx context.Context, resources []types.Resource, tags map[string]string, opts Options) (*BulkTagResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "executor.tag_resources")
	defer span.End()

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	result := &BulkTagResult{
		StartTime:  time.Now(),
		DryRun:     opts.DryRun,
		Operations: make([]TagOperation, 0, len(resources)),
	}

	batches := partition(resources, batchSize)
	aborted := false
	for i, batch := range batches {
		if aborted {
			e.skipBatch(result, batch, i, "aborted after rollback of an earlier batch")
			continue
		}
		if err := ctx.Err(); err != nil {
			e.skipBatch(result, batch, i, "canceled before batch started")
			continue
		}

		batchOK := e.runBatch(ctx, result, batch, i, tags, opts)
		if !batchOK && opts.Rollback {
			aborted = true
		}
	}

	result.Duration = time.Since(result.StartTime)
	e.logger.Info().
		Int("attempted", result.Attempted).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Bool("rollback", result.RollbackTriggered).
		Bool("dry_run", result.DryRun).
		Msg("bulk tagging finished")
	return result, nil
}

// runBatch tags one batch and reports whether it completed cleanly.
func (e *Engine) runBatch(ctx context.Context, result *BulkTagResult, batch []types.Resource, batchIdx int, tags map[string]string, opts Options) bool {
	start := len(result.Operations)

	for idx, res := range batch {
		result.Attempted++
		op := TagOperation{
			ResourceID:   res.ID,
			ResourceType: res.Type,
			Region:       res.Region,
			Tags:         tags,
			OriginalTags: res.CloneTags(),
			Status:       StatusPending,
			Batch:        batchIdx,
		}

		if opts.DryRun {
			if err := e.tagger.Validate(res.ID, tags); err != nil {
				op.Status = StatusFailed
				op.Reason = err.Error()
				result.Failed++
				result.Operations = append(result.Operations, op)
				result.Failures = append(result.Failures, Failure{
					ResourceID: res.ID,
					Reason:     err.Error(),
					Class:      classify(err, opts.ClassifyTransient),
				})
				continue
			}
			op.Status = StatusSucceeded
			op.Reason = "dry run"
			result.Succeeded++
			result.Operations = append(result.Operations, op)
			continue
		}

		err := e.tagger.ApplyTags(ctx, res.ID, tags)
		if err == nil {
			op.Status = StatusSucceeded
			result.Succeeded++
			result.Operations = append(result.Operations, op)
			continue
		}

		op.Status = StatusFailed
		op.Reason = err.Error()
		result.Failed++
		result.Operations = append(result.Operations, op)
		result.Failures = append(result.Failures, Failure{
			ResourceID: res.ID,
			Reason:     err.Error(),
			Class:      classify(err, opts.ClassifyTransient),
		})
		e.logger.Warn().Str("resource_id", res.ID).Err(err).Msg("tagging failed")

		if opts.Rollback {
			e.rollbackBatch(ctx, result, start, tags)
			e.skipBatch(result, batch[idx+1:], batchIdx, "aborted after failure in batch")
			return false
		}
	}
	return true
}

// rollbackBatch restores the original tags of this batch's succeeded
// operations, most recent first. Restoring means re-applying original
// values for keys that existed and removing keys the run added.
func (e *Engine) rollbackBatch(ctx context.Context, result *BulkTagResult, batchStart int, applied map[string]string) {
	result.RollbackTriggered = true
	result.RollbackSucceeded = true
	telemetry.RollbacksRun.Add(ctx, 1)

	for i := len(result.Operations) - 1; i >= batchStart; i-- {
		op := &result.Operations[i]
		if op.Status != StatusSucceeded {
			continue
		}
		if err := e.restore(ctx, op, applied); err != nil {
			result.RollbackSucceeded = false
			op.Reason = "rollback failed: " + err.Error()
			e.logger.Error().Str("resource_id", op.ResourceID).Err(err).Msg("rollback failed")
			continue
		}
		op.Status = StatusRolledBack
		result.Succeeded--
		e.logger.Info().Str("resource_id", op.ResourceID).Msg("tags rolled back")
	}
}

func (e *Engine) restore(ctx context.Context, op *TagOperation, applied map[string]string) error {
	var overwrite map[string]string
	var added []string
	for k := range applied {
		if orig, ok := op.OriginalTags[k]; ok {
			if overwrite == nil {
				overwrite = map[string]string{}
			}
			overwrite[k] = orig
		} else {
			added = append(added, k)
		}
	}

	if len(overwrite) > 0 {
		if err := e.tagger.ApplyTags(ctx, op.ResourceID, overwrite); err != nil {
			return err
		}
	}
	if len(added) > 0 {
		if err := e.tagger.RemoveTags(ctx, op.ResourceID, added); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) skipBatch(result *BulkTagResult, batch []types.Resource, batchIdx int, reason string) {
	for _, res := range batch {
		result.Skipped++
		result.Operations = append(result.Operations, TagOperation{
			ResourceID:   res.ID,
			ResourceType: res.Type,
			Region:       res.Region,
			OriginalTags: res.CloneTags(),
			Status:       StatusSkipped,
			Reason:       reason,
			Batch:        batchIdx,
		})
	}
}

func classify(err error, transient func(error) bool) FailureClass {
	var ve *scanner.ValidationError
	if errors.As(err, &ve) {
		return FailureValidation
	}
	if transient != nil && transient(err) {
		return FailureTransient
	}
	return FailurePermanent
}

func partition(resources []types.Resource, size int) [][]types.Resource {
	var batches [][]types.Resource
	for start := 0; start < len(resources); start += size {
		end := start + size
		if end > len(resources) {
			end = len(resources)
		}
		batches = append(batches, resources[start:end])
	}
	return batches
}
