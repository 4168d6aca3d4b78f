package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/types"
)

// fakeEC2 serves canned DescribeInstances pages and records CreateTags
// calls. errBeforePage injects one failure before the given page index
// to exercise per-page retry.
type fakeEC2 struct {
	pages         []*ec2.DescribeInstancesOutput
	pageIdx       int
	errBeforePage int
	injectedErr   error
	errFired      bool

	volumePages []*ec2.DescribeVolumesOutput
	volumeIdx   int

	createTagsCalls []*ec2.CreateTagsInput
	createTagsErr   error
	deleteTagsCalls []*ec2.DeleteTagsInput
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if f.injectedErr != nil && !f.errFired && f.pageIdx == f.errBeforePage {
		f.errFired = true
		return nil, f.injectedErr
	}
	out := f.pages[f.pageIdx]
	f.pageIdx++
	return out, nil
}

func (f *fakeEC2) DescribeVolumes(_ context.Context, in *ec2.DescribeVolumesInput, _ ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
	out := f.volumePages[f.volumeIdx]
	f.volumeIdx++
	return out, nil
}

func (f *fakeEC2) CreateTags(_ context.Context, in *ec2.CreateTagsInput, _ ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	f.createTagsCalls = append(f.createTagsCalls, in)
	if f.createTagsErr != nil {
		return nil, f.createTagsErr
	}
	return &ec2.CreateTagsOutput{}, nil
}

func (f *fakeEC2) DeleteTags(_ context.Context, in *ec2.DeleteTagsInput, _ ...func(*ec2.Options)) (*ec2.DeleteTagsOutput, error) {
	f.deleteTagsCalls = append(f.deleteTagsCalls, in)
	return &ec2.DeleteTagsOutput{}, nil
}

func instance(id, state string, tags map[string]string) ec2types.Instance {
	return ec2types.Instance{
		InstanceId: awssdk.String(id),
		State:      &ec2types.InstanceState{Name: ec2types.InstanceStateName(state)},
		Tags:       mapToEC2Tags(tags),
	}
}

func instancePage(next *string, instances ...ec2types.Instance) *ec2.DescribeInstancesOutput {
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: instances}},
		NextToken:    next,
	}
}

func TestEC2ScanPaginatesAndFilters(t *testing.T) {
	fake := &fakeEC2{
		pages: []*ec2.DescribeInstancesOutput{
			instancePage(awssdk.String("page2"),
				instance("i-0aaaaaaaaaaaaaaaa", "running", map[string]string{"Name": "web", "Owner": "team-a"}),
				instance("i-0bbbbbbbbbbbbbbbb", "terminated", nil),
			),
			instancePage(nil,
				instance("i-0cccccccccccccccc", "running", nil),
			),
		},
	}
	s := NewEC2Scanner(fake, "us-east-1", zerolog.Nop())

	result, err := s.Scan(context.Background(), scanner.Filter{States: []string{"running"}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCount, "terminated instance filtered out")
	assert.Equal(t, 1, result.UntaggedCount)
	assert.Equal(t, "web", result.Resources[0].Name)
	assert.Equal(t, types.ResourceEC2, result.ResourceType)
}

func TestEC2ScanUntaggedOnly(t *testing.T) {
	fake := &fakeEC2{
		pages: []*ec2.DescribeInstancesOutput{
			instancePage(nil,
				instance("i-0aaaaaaaaaaaaaaaa", "running", map[string]string{"Owner": "team-a"}),
				instance("i-0bbbbbbbbbbbbbbbb", "running", nil),
			),
		},
	}
	s := NewEC2Scanner(fake, "us-east-1", zerolog.Nop())

	result, err := s.Scan(context.Background(), scanner.Filter{UntaggedOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalCount)
	assert.Equal(t, "i-0bbbbbbbbbbbbbbbb", result.Resources[0].ID)
}

func TestEC2ScanRetriesThrottledPage(t *testing.T) {
	throttle := &smithy.GenericAPIError{Code: "RequestLimitExceeded", Message: "slow down"}
	fake := &fakeEC2{
		pages: []*ec2.DescribeInstancesOutput{
			instancePage(awssdk.String("page2"), instance("i-0aaaaaaaaaaaaaaaa", "running", nil)),
			instancePage(nil, instance("i-0bbbbbbbbbbbbbbbb", "running", nil)),
		},
		errBeforePage: 1,
		injectedErr:   throttle,
	}
	s := NewEC2Scanner(fake, "us-east-1", zerolog.Nop())
	s.policy.BaseDelay = 1
	s.policy.MaxDelay = 1

	result, err := s.Scan(context.Background(), scanner.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount, "throttled page refetched, not skipped")
}

func TestEC2ScanPermanentErrorFailsScan(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "UnauthorizedOperation", Fault: smithy.FaultClient}
	fake := &fakeEC2{
		pages:         []*ec2.DescribeInstancesOutput{instancePage(nil)},
		errBeforePage: 0,
		injectedErr:   denied,
	}
	s := NewEC2Scanner(fake, "us-east-1", zerolog.Nop())
	s.policy.BaseDelay = 1

	_, err := s.Scan(context.Background(), scanner.Filter{})
	require.Error(t, err)
	assert.Equal(t, 0, fake.pageIdx, "permanent error not retried")
}

func TestEC2ApplyTags(t *testing.T) {
	fake := &fakeEC2{}
	s := NewEC2Scanner(fake, "us-east-1", zerolog.Nop())

	err := s.ApplyTags(context.Background(), "i-0aaaaaaaaaaaaaaaa", map[string]string{"Owner": "team-a"})
	require.NoError(t, err)
	require.Len(t, fake.createTagsCalls, 1)
	assert.Equal(t, []string{"i-0aaaaaaaaaaaaaaaa"}, fake.createTagsCalls[0].Resources)
}

func TestEC2RemoveTags(t *testing.T) {
	fake := &fakeEC2{}
	s := NewEC2Scanner(fake, "us-east-1", zerolog.Nop())

	err := s.RemoveTags(context.Background(), "i-0aaaaaaaaaaaaaaaa", []string{"Owner"})
	require.NoError(t, err)
	require.Len(t, fake.deleteTagsCalls, 1)
	assert.Equal(t, "Owner", awssdk.ToString(fake.deleteTagsCalls[0].Tags[0].Key))
	assert.Nil(t, fake.deleteTagsCalls[0].Tags[0].Value, "key-only delete removes any value")
}

func TestEC2ApplyTagsValidation(t *testing.T) {
	fake := &fakeEC2{}
	s := NewEC2Scanner(fake, "us-east-1", zerolog.Nop())

	tests := []struct {
		name string
		id   string
		tags map[string]string
	}{
		{"malformed id", "not-an-instance", map[string]string{"Owner": "x"}},
		{"empty tag key", "i-0aaaaaaaaaaaaaaaa", map[string]string{"": "x"}},
		{"no tags", "i-0aaaaaaaaaaaaaaaa", nil},
		{"reserved prefix", "i-0aaaaaaaaaaaaaaaa", map[string]string{"aws:owner": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ApplyTags(context.Background(), tt.id, tt.tags)
			var ve *scanner.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Empty(t, fake.createTagsCalls, "validation failures never reach the API")
		})
	}
}
