package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tagsense/tagsense/retry"
	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/telemetry"
	"github.com/tagsense/tagsense/types"
)

// S3Scanner enumerates buckets homed in one region. ListBuckets is a
// global call, so results are filtered down to the scanner's region.
type S3Scanner struct {
	client S3API
	region string
	policy retry.Policy
	logger zerolog.Logger
}

// NewS3Scanner builds a bucket scanner over the given client.
func NewS3Scanner(client S3API, region string, logger zerolog.Logger) *S3Scanner {
	return &S3Scanner{
		client: client,
		region: region,
		policy: awsRetryPolicy(),
		logger: logger.With().Str("scanner", "s3").Str("region", region).Logger(),
	}
}

// ResourceType reports the resource type this scanner covers.
func (s *S3Scanner) ResourceType() types.ResourceType { return types.ResourceS3 }

// Scan pages through ListBuckets with the continuation token, keeping
// only buckets in this region, then fetches each bucket's tag set.
func (s *S3Scanner) Scan(ctx context.Context, filter scanner.Filter) (*types.ScanResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "aws.s3.scan")
	defer span.End()

	var resources []types.Resource
	var token *string

	for {
		page, err := retry.Do(ctx, s.policy, func() (*s3.ListBucketsOutput, error) {
			return s.client.ListBuckets(ctx, &s3.ListBucketsInput{ContinuationToken: token})
		})
		if err != nil {
			return nil, fmt.Errorf("list buckets: %w", err)
		}

		for _, bucket := range page.Buckets {
			name := aws.ToString(bucket.Name)
			if filter.NamePrefix != "" && !strings.HasPrefix(name, filter.NamePrefix) {
				continue
			}
			region, err := s.bucketRegion(ctx, bucket)
			if err != nil {
				return nil, fmt.Errorf("locate bucket %s: %w", name, err)
			}
			if region != s.region {
				continue
			}
			tags, err := s.bucketTags(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("get tags for bucket %s: %w", name, err)
			}
			if filter.UntaggedOnly && len(tags) > 0 {
				continue
			}
			resources = append(resources, types.Resource{
				ID:     name,
				Type:   types.ResourceS3,
				Region: s.region,
				Name:   name,
				Tags:   tags,
			})
		}

		if page.ContinuationToken == nil {
			break
		}
		token = page.ContinuationToken
	}

	result := types.NewScanResult(types.ResourceS3, s.region, resources)
	recordScanMetrics(ctx, result)
	s.logger.Debug().Int("total", result.TotalCount).Int("untagged", result.UntaggedCount).Msg("scan complete")
	return result, nil
}

// bucketRegion prefers the region ListBuckets already returned and
// falls back to GetBucketLocation for older response shapes.
func (s *S3Scanner) bucketRegion(ctx context.Context, bucket s3types.Bucket) (string, error) {
	if r := aws.ToString(bucket.BucketRegion); r != "" {
		return r, nil
	}
	out, err := retry.Do(ctx, s.policy, func() (*s3.GetBucketLocationOutput, error) {
		return s.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: bucket.Name})
	})
	if err != nil {
		return "", err
	}
	// An empty LocationConstraint means us-east-1.
	if out.LocationConstraint == "" {
		return "us-east-1", nil
	}
	return string(out.LocationConstraint), nil
}

func (s *S3Scanner) bucketTags(ctx context.Context, name string) (map[string]string, error) {
	out, err := retry.Do(ctx, s.policy, func() (*s3.GetBucketTaggingOutput, error) {
		return s.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(name)})
	})
	if err != nil {
		// A bucket with no tag set at all answers with NoSuchTagSet.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchTagSet" {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return s3TagSetToMap(out.TagSet), nil
}

// Validate checks a prospective tagging operation without calling the
// API.
func (s *S3Scanner) Validate(resourceID string, tags map[string]string) error {
	if err := ValidateResourceID(types.ResourceS3, resourceID); err != nil {
		return err
	}
	return ValidateTags(tags)
}

// ApplyTags merges tags into the bucket's tag set. PutBucketTagging
// replaces the whole set, so the existing tags are read first and
// carried over.
func (s *S3Scanner) ApplyTags(ctx context.Context, resourceID string, tags map[string]string) error {
	if err := s.Validate(resourceID, tags); err != nil {
		return err
	}

	existing, err := s.bucketTags(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("read tags for bucket %s: %w", resourceID, err)
	}
	merged := make(map[string]string, len(existing)+len(tags))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}

	_, err = retry.Do(ctx, s.policy, func() (*s3.PutBucketTaggingOutput, error) {
		return s.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
			Bucket:  aws.String(resourceID),
			Tagging: &s3types.Tagging{TagSet: mapToS3TagSet(merged)},
		})
	})
	if err != nil {
		return fmt.Errorf("tag bucket %s: %w", resourceID, err)
	}
	telemetry.TagsApplied.Add(ctx, int64(len(tags)),
		metric.WithAttributes(attribute.String("resource_type", string(types.ResourceS3))))
	return nil
}

// RemoveTags deletes tag keys from a bucket by rewriting the tag set
// without them.
func (s *S3Scanner) RemoveTags(ctx context.Context, resourceID string, keys []string) error {
	if err := ValidateResourceID(types.ResourceS3, resourceID); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	existing, err := s.bucketTags(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("read tags for bucket %s: %w", resourceID, err)
	}
	for _, k := range keys {
		delete(existing, k)
	}

	_, err = retry.Do(ctx, s.policy, func() (*s3.PutBucketTaggingOutput, error) {
		return s.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
			Bucket:  aws.String(resourceID),
			Tagging: &s3types.Tagging{TagSet: mapToS3TagSet(existing)},
		})
	})
	if err != nil {
		return fmt.Errorf("untag bucket %s: %w", resourceID, err)
	}
	return nil
}
