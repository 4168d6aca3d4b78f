package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tagsense/tagsense/retry"
	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/telemetry"
	"github.com/tagsense/tagsense/types"
)

// LambdaScanner enumerates Lambda functions in one region. Function
// configurations do not carry tags, so each function costs one
// ListTags call.
type LambdaScanner struct {
	client LambdaAPI
	region string
	policy retry.Policy
	logger zerolog.Logger
}

// NewLambdaScanner builds a function scanner over the given client.
func NewLambdaScanner(client LambdaAPI, region string, logger zerolog.Logger) *LambdaScanner {
	return &LambdaScanner{
		client: client,
		region: region,
		policy: awsRetryPolicy(),
		logger: logger.With().Str("scanner", "lambda").Str("region", region).Logger(),
	}
}

// ResourceType reports the resource type this scanner covers.
func (s *LambdaScanner) ResourceType() types.ResourceType { return types.ResourceLambda }

// Scan lists functions page by page, fetching tags per function. A
// tag fetch failure fails the scan; a result with silently missing
// tags would misreport compliance.
func (s *LambdaScanner) Scan(ctx context.Context, filter scanner.Filter) (*types.ScanResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "aws.lambda.scan")
	defer span.End()

	var resources []types.Resource
	paginator := lambda.NewListFunctionsPaginator(s.client, &lambda.ListFunctionsInput{})

	for paginator.HasMorePages() {
		page, err := retry.Do(ctx, s.policy, func() (*lambda.ListFunctionsOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("list functions in %s: %w", s.region, err)
		}

		for _, fn := range page.Functions {
			if !filter.MatchRuntime(string(fn.Runtime)) {
				continue
			}
			tags, err := s.functionTags(ctx, fn.FunctionArn)
			if err != nil {
				return nil, fmt.Errorf("list tags for %s: %w", aws.ToString(fn.FunctionName), err)
			}
			if filter.UntaggedOnly && len(tags) > 0 {
				continue
			}
			resources = append(resources, types.Resource{
				ID:     aws.ToString(fn.FunctionName),
				Type:   types.ResourceLambda,
				Region: s.region,
				Name:   aws.ToString(fn.FunctionName),
				State:  string(fn.State),
				Tags:   tags,
			})
		}
	}

	result := types.NewScanResult(types.ResourceLambda, s.region, resources)
	recordScanMetrics(ctx, result)
	s.logger.Debug().Int("total", result.TotalCount).Int("untagged", result.UntaggedCount).Msg("scan complete")
	return result, nil
}

func (s *LambdaScanner) functionTags(ctx context.Context, arn *string) (map[string]string, error) {
	out, err := retry.Do(ctx, s.policy, func() (*lambda.ListTagsOutput, error) {
		return s.client.ListTags(ctx, &lambda.ListTagsInput{Resource: arn})
	})
	if err != nil {
		return nil, err
	}
	tags := make(map[string]string, len(out.Tags))
	for k, v := range out.Tags {
		tags[k] = v
	}
	return tags, nil
}

// Validate checks a prospective tagging operation without calling the
// API.
func (s *LambdaScanner) Validate(resourceID string, tags map[string]string) error {
	if err := ValidateResourceID(types.ResourceLambda, resourceID); err != nil {
		return err
	}
	return ValidateTags(tags)
}

// ApplyTags resolves the function's ARN and tags it. Lambda's
// TagResource takes an ARN, not a name.
func (s *LambdaScanner) ApplyTags(ctx context.Context, resourceID string, tags map[string]string) error {
	if err := s.Validate(resourceID, tags); err != nil {
		return err
	}

	fn, err := retry.Do(ctx, s.policy, func() (*lambda.GetFunctionOutput, error) {
		return s.client.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(resourceID)})
	})
	if err != nil {
		return fmt.Errorf("resolve function %s: %w", resourceID, err)
	}

	_, err = retry.Do(ctx, s.policy, func() (*lambda.TagResourceOutput, error) {
		return s.client.TagResource(ctx, &lambda.TagResourceInput{
			Resource: fn.Configuration.FunctionArn,
			Tags:     tags,
		})
	})
	if err != nil {
		return fmt.Errorf("tag function %s: %w", resourceID, err)
	}
	telemetry.TagsApplied.Add(ctx, int64(len(tags)),
		metric.WithAttributes(attribute.String("resource_type", string(types.ResourceLambda))))
	return nil
}

// RemoveTags deletes tag keys from a function, used when a batch
// rolls back tags it added.
func (s *LambdaScanner) RemoveTags(ctx context.Context, resourceID string, keys []string) error {
	if err := ValidateResourceID(types.ResourceLambda, resourceID); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	fn, err := retry.Do(ctx, s.policy, func() (*lambda.GetFunctionOutput, error) {
		return s.client.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(resourceID)})
	})
	if err != nil {
		return fmt.Errorf("resolve function %s: %w", resourceID, err)
	}

	_, err = retry.Do(ctx, s.policy, func() (*lambda.UntagResourceOutput, error) {
		return s.client.UntagResource(ctx, &lambda.UntagResourceInput{
			Resource: fn.Configuration.FunctionArn,
			TagKeys:  keys,
		})
	})
	if err != nil {
		return fmt.Errorf("untag function %s: %w", resourceID, err)
	}
	return nil
}
