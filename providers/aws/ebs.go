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

// EBSScanner enumerates EBS volumes in one region. Volumes share the
// EC2 API surface, including CreateTags.
type EBSScanner struct {
	client EC2API
	region string
	policy retry.Policy
	logger zerolog.Logger
}

// NewEBSScanner builds a volume scanner over the given client.
func NewEBSScanner(client EC2API, region string, logger zerolog.Logger) *EBSScanner {
	return &EBSScanner{
		client: client,
		region: region,
		policy: awsRetryPolicy(),
		logger: logger.With().Str("scanner", "ebs").Str("region", region).Logger(),
	}
}

// ResourceType reports the resource type this scanner covers.
func (s *EBSScanner) ResourceType() types.ResourceType { return types.ResourceEBS }

// Scan lists volumes page by page with per-page retry.
func (s *EBSScanner) Scan(ctx context.Context, filter scanner.Filter) (*types.ScanResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "aws.ebs.scan")
	defer span.End()

	var resources []types.Resource
	paginator := ec2.NewDescribeVolumesPaginator(s.client, &ec2.DescribeVolumesInput{})

	for paginator.HasMorePages() {
		page, err := retry.Do(ctx, s.policy, func() (*ec2.DescribeVolumesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("describe volumes in %s: %w", s.region, err)
		}

		for _, volume := range page.Volumes {
			tags := ec2TagsToMap(volume.Tags)
			state := string(volume.State)
			if !filter.MatchState(state) {
				continue
			}
			if filter.UntaggedOnly && len(tags) > 0 {
				continue
			}
			resources = append(resources, types.Resource{
				ID:     aws.ToString(volume.VolumeId),
				Type:   types.ResourceEBS,
				Region: s.region,
				Name:   tags["Name"],
				State:  state,
				Tags:   tags,
			})
		}
	}

	result := types.NewScanResult(types.ResourceEBS, s.region, resources)
	recordScanMetrics(ctx, result)
	s.logger.Debug().Int("total", result.TotalCount).Int("untagged", result.UntaggedCount).Msg("scan complete")
	return result, nil
}

// Validate checks a prospective tagging operation without calling the
// API.
func (s *EBSScanner) Validate(resourceID string, tags map[string]string) error {
	if err := ValidateResourceID(types.ResourceEBS, resourceID); err != nil {
		return err
	}
	return ValidateTags(tags)
}

// ApplyTags merges tags onto a volume via CreateTags.
func (s *EBSScanner) ApplyTags(ctx context.Context, resourceID string, tags map[string]string) error {
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
		return fmt.Errorf("tag volume %s: %w", resourceID, err)
	}
	telemetry.TagsApplied.Add(ctx, int64(len(tags)),
		metric.WithAttributes(attribute.String("resource_type", string(types.ResourceEBS))))
	return nil
}

// RemoveTags deletes tag keys from a volume, used when a batch rolls
// back tags it added.
func (s *EBSScanner) RemoveTags(ctx context.Context, resourceID string, keys []string) error {
	if err := ValidateResourceID(types.ResourceEBS, resourceID); err != nil {
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
		return fmt.Errorf("untag volume %s: %w", resourceID, err)
	}
	return nil
}
