package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tagsense/tagsense/executor"
	"github.com/tagsense/tagsense/providers/aws"
	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/types"
)

var (
	tagRegion       string
	tagType         string
	tagPairs        []string
	tagUntaggedOnly bool
	tagDryRun       bool
	tagBatchSize    int
	tagNoRollback   bool
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Apply tags to scanned resources in bulk",
	Long: `Scan resources, then apply the given tags to each match in batches.

With rollback enabled (the default), a failure inside a batch restores
that batch's already-tagged resources and stops; earlier completed
batches keep their tags.`,
	Example: `  tagsense tag --type ec2 --tag Owner=team-a --tag Environment=prod
  tagsense tag --type s3 --untagged-only --tag Owner=platform --dry-run
  tagsense tag --type rds --tag CostCenter=1234 --batch-size 10 --no-rollback`,
	RunE: runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)

	tagCmd.Flags().StringVarP(&tagRegion, "region", "r", "", "AWS region (defaults to configured region)")
	tagCmd.Flags().StringVarP(&tagType, "type", "t", "ec2", "Resource type: ec2, lambda, s3, rds, ebs")
	tagCmd.Flags().StringArrayVar(&tagPairs, "tag", nil, "Tag to apply as KEY=VALUE (repeatable)")
	tagCmd.Flags().BoolVar(&tagUntaggedOnly, "untagged-only", false, "Only tag resources that have no tags")
	tagCmd.Flags().BoolVar(&tagDryRun, "dry-run", false, "Validate and simulate without mutating")
	tagCmd.Flags().IntVar(&tagBatchSize, "batch-size", 0, "Resources per rollback scope (default from config)")
	tagCmd.Flags().BoolVar(&tagNoRollback, "no-rollback", false, "Record failures and continue instead of rolling back")
	_ = tagCmd.MarkFlagRequired("tag")
}

func runTag(cmd *cobra.Command, args []string) error {
	rt, err := types.ParseResourceType(tagType)
	if err != nil {
		return err
	}
	tags, err := parseTagPairs(tagPairs)
	if err != nil {
		return err
	}

	region := tagRegion
	if region == "" {
		region = settings.Region
	}
	ctx := cmd.Context()

	provider, err := aws.NewProvider(ctx, region, logger)
	if err != nil {
		return err
	}
	s, err := provider.Scanner(rt)
	if err != nil {
		return err
	}

	result, err := s.Scan(ctx, scanner.Filter{UntaggedOnly: tagUntaggedOnly})
	if err != nil {
		return err
	}
	if result.TotalCount == 0 {
		fmt.Println("nothing to tag")
		return nil
	}

	tagger, ok := s.(executor.Tagger)
	if !ok {
		return fmt.Errorf("scanner for %s cannot mutate tags", rt)
	}

	batchSize := tagBatchSize
	if batchSize == 0 {
		batchSize = settings.Tagging.BatchSize
	}
	engine := executor.NewEngine(tagger, logger)
	bulk, err := engine.TagResources(ctx, result.Resources, tags, executor.Options{
		BatchSize:         batchSize,
		DryRun:            tagDryRun,
		Rollback:          settings.Tagging.EnableRollback && !tagNoRollback,
		ClassifyTransient: aws.IsTransient,
	})
	if err != nil {
		return err
	}

	printBulkResult(bulk)
	if bulk.Failed > 0 {
		return fmt.Errorf("%d of %d resources failed", bulk.Failed, bulk.Attempted)
	}
	return nil
}

func parseTagPairs(pairs []string) (map[string]string, error) {
	tags := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q (expected KEY=VALUE)", pair)
		}
		tags[k] = v
	}
	return tags, nil
}

func printBulkResult(r *executor.BulkTagResult) {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Printf("tagged %d/%d resources%s in %s\n", r.Succeeded, r.Attempted, mode, r.Duration.Round(1e6))
	if r.RollbackTriggered {
		status := "succeeded"
		if !r.RollbackSucceeded {
			status = "left inconsistent state, check failures"
		}
		fmt.Printf("rollback %s\n", status)
	}
	for _, f := range r.Failures {
		fmt.Printf("  failed %s [%s]: %s\n", f.ResourceID, f.Class, f.Reason)
	}
}
