package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tagsense/tagsense/retry"
	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/telemetry"
	"github.com/tagsense/tagsense/types"
)

// RDSScanner enumerates DB instances in one region. DescribeDBInstances
// returns tags inline via TagList, so scans need no extra calls.
type RDSScanner struct {
	client RDSAPI
	region string
	policy retry.Policy
	logger zerolog.Logger
}

// NewRDSScanner builds a DB instance scanner over the given client.
func NewRDSScanner(client RDSAPI, region string, logger zerolog.Logger) *RDSScanner {
	return &RDSScanner{
		client: client,
		region: region,
		policy: awsRetryPolicy(),
		logger: logger.With().Str("scanner", "rds").Str("region", region).Logger(),
	}
}

// ResourceType reports the resource type this scanner covers.
func (s *RDSScanner) ResourceType() types.ResourceType { return types.ResourceRDS }

// Scan lists DB instances page by page with per-page retry.
func (s *RDSScanner) Scan(ctx context.Context, filter scanner.Filter) (*types.ScanResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "aws.rds.scan")
	defer span.End()

	var resources []types.Resource
	paginator := rds.NewDescribeDBInstancesPaginator(s.client, &rds.DescribeDBInstancesInput{})

	for paginator.HasMorePages() {
		page, err := retry.Do(ctx, s.policy, func() (*rds.DescribeDBInstancesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("describe db instances in %s: %w", s.region, err)
		}

		for _, db := range page.DBInstances {
			if !filter.MatchEngine(aws.ToString(db.Engine)) {
				continue
			}
			tags := rdsTagListToMap(db.TagList)
			if filter.UntaggedOnly && len(tags) > 0 {
				continue
			}
			resources = append(resources, types.Resource{
				ID:     aws.ToString(db.DBInstanceIdentifier),
				Type:   types.ResourceRDS,
				Region: s.region,
				Name:   aws.ToString(db.DBInstanceIdentifier),
				State:  aws.ToString(db.DBInstanceStatus),
				Tags:   tags,
			})
		}
	}

	result := types.NewScanResult(types.ResourceRDS, s.region, resources)
	recordScanMetrics(ctx, result)
	s.logger.Debug().Int("total", result.TotalCount).Int("untagged", result.UntaggedCount).Msg("scan complete")
	return result, nil
}

// Validate checks a prospective tagging operation without calling the
// API.
func (s *RDSScanner) Validate(resourceID string, tags map[string]string) error {
	if err := ValidateResourceID(types.ResourceRDS, resourceID); err != nil {
		return err
	}
	return ValidateTags(tags)
}

// ApplyTags resolves the instance ARN and adds tags to it.
// AddTagsToResource takes an ARN, not an identifier.
func (s *RDSScanner) ApplyTags(ctx context.Context, resourceID string, tags map[string]string) error {
	if err := s.Validate(resourceID, tags); err != nil {
		return err
	}

	out, err := retry.Do(ctx, s.policy, func() (*rds.DescribeDBInstancesOutput, error) {
		return s.client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
			DBInstanceIdentifier: aws.String(resourceID),
		})
	})
	if err != nil {
		return fmt.Errorf("resolve db instance %s: %w", resourceID, err)
	}
	if len(out.DBInstances) == 0 {
		return fmt.Errorf("db instance %s not found", resourceID)
	}

	_, err = retry.Do(ctx, s.policy, func() (*rds.AddTagsToResourceOutput, error) {
		return s.client.AddTagsToResource(ctx, &rds.AddTagsToResourceInput{
			ResourceName: out.DBInstances[0].DBInstanceArn,
			Tags:         mapToRDSTags(tags),
		})
	})
	if err != nil {
		return fmt.Errorf("tag db instance %s: %w", resourceID, err)
	}
	telemetry.TagsApplied.Add(ctx, int64(len(tags)),
		metric.WithAttributes(attribute.String("resource_type", string(types.ResourceRDS))))
	return nil
}

// RemoveTags deletes tag keys from a DB instance, used when a batch
// rolls back tags it added.
func (s *RDSScanner) RemoveTags(ctx context.Context, resourceID string, keys []string) error {
	if err := ValidateResourceID(types.ResourceRDS, resourceID); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	out, err := retry.Do(ctx, s.policy, func() (*rds.DescribeDBInstancesOutput, error) {
		return s.client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
			DBInstanceIdentifier: aws.String(resourceID),
		})
	})
	if err != nil {
		return fmt.Errorf("resolve db instance %s: %w", resourceID, err)
	}
	if len(out.DBInstances) == 0 {
		return fmt.Errorf("db instance %s not found", resourceID)
	}

	_, err = retry.Do(ctx, s.policy, func() (*rds.RemoveTagsFromResourceOutput, error) {
		return s.client.RemoveTagsFromResource(ctx, &rds.RemoveTagsFromResourceInput{
			ResourceName: out.DBInstances[0].DBInstanceArn,
			TagKeys:      keys,
		})
	})
	if err != nil {
		return fmt.Errorf("untag db instance %s: %w", resourceID, err)
	}
	return nil
}
