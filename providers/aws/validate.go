package aws

import (
	"regexp"
	"strings"

	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/types"
)

var (
	instanceIDPattern = regexp.MustCompile(`^i-[0-9a-f]{8,17}$`)
	volumeIDPattern   = regexp.MustCompile(`^vol-[0-9a-f]{8,17}$`)
	functionPattern   = regexp.MustCompile(`^[a-zA-Z0-9\-_]{1,64}$`)
	bucketPattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)
	dbIdentPattern    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9\-]{0,62}$`)
)

// ValidateResourceID checks the ID shape for a resource type before
// any API call is made with it.
func ValidateResourceID(rt types.ResourceType, id string) error {
	switch rt {
	case types.ResourceEC2:
		if !instanceIDPattern.MatchString(id) {
			return &scanner.ValidationError{Field: "resource_id", Value: id, Reason: "must match i-<hex>"}
		}
	case types.ResourceEBS:
		if !volumeIDPattern.MatchString(id) {
			return &scanner.ValidationError{Field: "resource_id", Value: id, Reason: "must match vol-<hex>"}
		}
	case types.ResourceLambda:
		if !functionPattern.MatchString(id) {
			return &scanner.ValidationError{Field: "resource_id", Value: id, Reason: "must be a function name of 1-64 word characters"}
		}
	case types.ResourceS3:
		if !bucketPattern.MatchString(id) || strings.Contains(id, "..") {
			return &scanner.ValidationError{Field: "resource_id", Value: id, Reason: "must follow S3 bucket naming rules"}
		}
	case types.ResourceRDS:
		if !dbIdentPattern.MatchString(id) || strings.HasSuffix(id, "-") || strings.Contains(id, "--") {
			return &scanner.ValidationError{Field: "resource_id", Value: id, Reason: "must be a valid DB instance identifier"}
		}
	default:
		return &scanner.ValidationError{Field: "resource_type", Value: string(rt), Reason: "no scanner registered"}
	}
	return nil
}

// ValidateTags rejects tag sets that AWS would refuse, before any
// call leaves the process.
func ValidateTags(tags map[string]string) error {
	if len(tags) == 0 {
		return &scanner.ValidationError{Field: "tags", Value: "", Reason: "at least one tag is required"}
	}
	for k, v := range tags {
		if k == "" {
			return &scanner.ValidationError{Field: "tag_key", Value: k, Reason: "must not be empty"}
		}
		if len(k) > 128 {
			return &scanner.ValidationError{Field: "tag_key", Value: k, Reason: "must be at most 128 characters"}
		}
		if len(v) > 256 {
			return &scanner.ValidationError{Field: "tag_value", Value: v, Reason: "must be at most 256 characters"}
		}
		if strings.HasPrefix(strings.ToLower(k), "aws:") {
			return &scanner.ValidationError{Field: "tag_key", Value: k, Reason: "the aws: prefix is reserved"}
		}
	}
	return nil
}
