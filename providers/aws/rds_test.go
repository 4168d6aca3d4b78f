package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/types"
)

type fakeRDS struct {
	pages   []*rds.DescribeDBInstancesOutput
	pageIdx int

	addTagsCalls []*rds.AddTagsToResourceInput
}

func (f *fakeRDS) DescribeDBInstances(_ context.Context, in *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	if in.DBInstanceIdentifier != nil {
		// ARN resolution path used by ApplyTags.
		return &rds.DescribeDBInstancesOutput{
			DBInstances: []rdstypes.DBInstance{{
				DBInstanceIdentifier: in.DBInstanceIdentifier,
				DBInstanceArn:        awssdk.String("arn:aws:rds:us-east-1:123456789012:db:" + *in.DBInstanceIdentifier),
			}},
		}, nil
	}
	out := f.pages[f.pageIdx]
	f.pageIdx++
	return out, nil
}

func (f *fakeRDS) AddTagsToResource(_ context.Context, in *rds.AddTagsToResourceInput, _ ...func(*rds.Options)) (*rds.AddTagsToResourceOutput, error) {
	f.addTagsCalls = append(f.addTagsCalls, in)
	return &rds.AddTagsToResourceOutput{}, nil
}

func (f *fakeRDS) RemoveTagsFromResource(_ context.Context, in *rds.RemoveTagsFromResourceInput, _ ...func(*rds.Options)) (*rds.RemoveTagsFromResourceOutput, error) {
	return &rds.RemoveTagsFromResourceOutput{}, nil
}

func dbInstance(id, engine string, tags map[string]string) rdstypes.DBInstance {
	return rdstypes.DBInstance{
		DBInstanceIdentifier: awssdk.String(id),
		Engine:               awssdk.String(engine),
		DBInstanceStatus:     awssdk.String("available"),
		TagList:              mapToRDSTags(tags),
	}
}

func TestRDSScanFiltersEngine(t *testing.T) {
	fake := &fakeRDS{
		pages: []*rds.DescribeDBInstancesOutput{{
			DBInstances: []rdstypes.DBInstance{
				dbInstance("orders-primary", "postgres", map[string]string{"Owner": "team-a"}),
				dbInstance("legacy-db", "mysql", nil),
				dbInstance("analytics", "postgres", nil),
			},
		}},
	}
	s := NewRDSScanner(fake, "us-east-1", zerolog.Nop())

	result, err := s.Scan(context.Background(), scanner.Filter{Engines: []string{"postgres"}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.UntaggedCount)
	assert.Equal(t, types.ResourceRDS, result.ResourceType)
}

func TestRDSApplyTagsResolvesARN(t *testing.T) {
	fake := &fakeRDS{}
	s := NewRDSScanner(fake, "us-east-1", zerolog.Nop())

	err := s.ApplyTags(context.Background(), "orders-primary", map[string]string{"Owner": "team-a"})
	require.NoError(t, err)
	require.Len(t, fake.addTagsCalls, 1)
	assert.Equal(t, "arn:aws:rds:us-east-1:123456789012:db:orders-primary",
		awssdk.ToString(fake.addTagsCalls[0].ResourceName))
}

func TestRDSApplyTagsRejectsBadIdentifier(t *testing.T) {
	fake := &fakeRDS{}
	s := NewRDSScanner(fake, "us-east-1", zerolog.Nop())

	err := s.ApplyTags(context.Background(), "orders--primary", map[string]string{"Owner": "x"})
	require.Error(t, err)
	assert.Empty(t, fake.addTagsCalls)
}
