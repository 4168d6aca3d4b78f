package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tagsense/tagsense/retry"
	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/telemetry"
	"github.com/tagsense/tagsense/types"
)

// EC2Scanner enumerates EC2 instances in one region.
type EC2Scanner struct {
	client EC2API
	region string
	policy retry.Policy
	logger zerolog.Logger
}

// NewEC2Scanner builds an instance scanner over the given client.
func NewEC2Scanner(client EC2API, region string, logger zerolog.Logger) *EC2Scanner {
	return &EC2Scanner{
		client: client,
		region: region,
		policy: awsRetryPolicy(),
		logger: logger.With().Str("scanner", "ec2").Str("region", region).Logger(),
	}
}

// ResourceType reports the resource type this scanner covers.
func (s *EC2Scanner) ResourceType() types.ResourceType { return types.ResourceEC2 }

// Scan lists instances page by page. Each page fetch is retried
// independently; the paginator keeps its position, so a retried page
// is refetched rather than skipped.
func (s *EC2Scanner) Scan(ctx context.Context, filter scanner.Filter) (*types.ScanResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "aws.ec2.scan")
	defer span.End()

	var resources []types.Resource
	paginator := ec2.NewDescribeInstancesPaginator(s.client, &ec2.DescribeInstancesInput{})

	for paginator.HasMorePages() {
		page, err := retry.Do(ctx, s.policy, func() (*ec2.DescribeInstancesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("describe instances in %s: %w", s.region, err)
		}

		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				tags := ec2TagsToMap(instance.Tags)
				state := string(instance.State.Name)
				if !filter.MatchState(state) {
					continue
				}
				if filter.UntaggedOnly && len(tags) > 0 {
					continue
				}
				resources = append(resources, types.Resource{
					ID:     aws.ToString(instance.InstanceId),
					Type:   types.ResourceEC2,
					Region: s.region,
					Name:   tags["Name"],
					State:  state,
					Tags:   tags,
				})
			}
		}
	}

	result := types.NewScanResult(types.ResourceEC2, s.region, resources)
	recordScanMetrics(ctx, result)
	s.logger.Debug().Int("total", result.TotalCount).Int("untagged", result.UntaggedCount).Msg("scan complete")
	return result, nil
}

// Validate checks a prospective tagging operation without calling the
// API, so a dry run reports the same verdict a real run would.
func (s *EC2Scanner) Validate(resourceID string, tags map[string]string) error {
	if err := ValidateResourceID(types.ResourceEC2, resourceID); err != nil {
		return err
	}
	return ValidateTags(tags)
}

// ApplyTags merges tags onto an instance via CreateTags.
func (s *EC2Scanner) ApplyTags(ctx context.Context, resourceID string, tags map[string]string) error {
	if err := s.Validate(resourceID, tags); err != nil {
		return err
	}

	_, err := retry.Do(ctx, s.policy, func() (*ec2.CreateTagsOutput, error) {
		return s.client.CreateTags(ctx, &ec2.CreateTagsInput{
			Resources: []string{resourceID},
			Tags:      mapToEC2Tags(tags),
		})
	})
	if err != nil {
		return fmt.Errorf("tag instance %s: %w", resourceID, err)
	}
	telemetry.TagsApplied.Add(ctx, int64(len(tags)),
		metric.WithAttributes(attribute.String("resource_type", string(types.ResourceEC2))))
	return nil
}

// RemoveTags deletes tag keys from an instance, used when a batch
// rolls back tags it added.
func (s *EC2Scanner) RemoveTags(ctx context.Context, resourceID string, keys []string) error {
	if err := ValidateResourceID(types.ResourceEC2, resourceID); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	_, err := retry.Do(ctx, s.policy, func() (*ec2.DeleteTagsOutput, error) {
		return s.client.DeleteTags(ctx, &ec2.DeleteTagsInput{
			Resources: []string{resourceID},
			Tags:      keysToEC2Tags(keys),
		})
	})
	if err != nil {
		return fmt.Errorf("untag instance %s: %w", resourceID, err)
	}
	return nil
}

// awsRetryPolicy is the shared page-fetch and mutation retry policy.
func awsRetryPolicy() retry.Policy {
	return retry.DefaultPolicy(IsTransient)
}

// recordScanMetrics emits the shared scan counters.
func recordScanMetrics(ctx context.Context, result *types.ScanResult) {
	telemetry.ResourcesScanned.Add(ctx, int64(result.TotalCount), metric.WithAttributes(
		attribute.String("resource_type", string(result.ResourceType)),
		attribute.String("region", result.Region),
	))
}
