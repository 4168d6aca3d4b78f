package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagsense/tagsense/scanner"
)

type fakeS3 struct {
	buckets map[string]string            // name -> region
	tags    map[string]map[string]string // name -> tag set; absent means NoSuchTagSet

	putCalls []*s3.PutBucketTaggingInput
}

func (f *fakeS3) ListBuckets(_ context.Context, _ *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	out := &s3.ListBucketsOutput{}
	for name, region := range f.buckets {
		out.Buckets = append(out.Buckets, s3types.Bucket{
			Name:         awssdk.String(name),
			BucketRegion: awssdk.String(region),
		})
	}
	return out, nil
}

func (f *fakeS3) GetBucketLocation(_ context.Context, in *s3.GetBucketLocationInput, _ ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	return &s3.GetBucketLocationOutput{
		LocationConstraint: s3types.BucketLocationConstraint(f.buckets[awssdk.ToString(in.Bucket)]),
	}, nil
}

func (f *fakeS3) GetBucketTagging(_ context.Context, in *s3.GetBucketTaggingInput, _ ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error) {
	tags, ok := f.tags[awssdk.ToString(in.Bucket)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchTagSet", Message: "no tag set"}
	}
	return &s3.GetBucketTaggingOutput{TagSet: mapToS3TagSet(tags)}, nil
}

func (f *fakeS3) PutBucketTagging(_ context.Context, in *s3.PutBucketTaggingInput, _ ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error) {
	f.putCalls = append(f.putCalls, in)
	return &s3.PutBucketTaggingOutput{}, nil
}

func TestS3ScanFiltersRegionAndTreatsNoTagSetAsUntagged(t *testing.T) {
	fake := &fakeS3{
		buckets: map[string]string{
			"prod-artifacts": "us-east-1",
			"eu-backups":     "eu-west-1",
			"prod-logs":      "us-east-1",
		},
		tags: map[string]map[string]string{
			"prod-artifacts": {"Owner": "team-a"},
			// prod-logs has no tag set at all
		},
	}
	s := NewS3Scanner(fake, "us-east-1", zerolog.Nop())

	result, err := s.Scan(context.Background(), scanner.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCount, "other-region bucket excluded")
	assert.Equal(t, 1, result.UntaggedCount)
}

func TestS3ScanNamePrefix(t *testing.T) {
	fake := &fakeS3{
		buckets: map[string]string{
			"prod-artifacts": "us-east-1",
			"dev-scratch":    "us-east-1",
		},
		tags: map[string]map[string]string{},
	}
	s := NewS3Scanner(fake, "us-east-1", zerolog.Nop())

	result, err := s.Scan(context.Background(), scanner.Filter{NamePrefix: "prod-"})
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalCount)
	assert.Equal(t, "prod-artifacts", result.Resources[0].ID)
}

func TestS3ApplyTagsMergesExistingSet(t *testing.T) {
	fake := &fakeS3{
		buckets: map[string]string{"prod-artifacts": "us-east-1"},
		tags: map[string]map[string]string{
			"prod-artifacts": {"Owner": "team-a"},
		},
	}
	s := NewS3Scanner(fake, "us-east-1", zerolog.Nop())

	err := s.ApplyTags(context.Background(), "prod-artifacts", map[string]string{"Environment": "prod"})
	require.NoError(t, err)
	require.Len(t, fake.putCalls, 1)

	written := s3TagSetToMap(fake.putCalls[0].Tagging.TagSet)
	assert.Equal(t, map[string]string{"Owner": "team-a", "Environment": "prod"}, written,
		"existing tags survive because PutBucketTagging replaces the whole set")
}
