package types

import "fmt"

// ResourceType identifies the kind of cloud resource a scanner handles.
type ResourceType string

const (
	ResourceEC2    ResourceType = "ec2"
	ResourceLambda ResourceType = "lambda"
	ResourceS3     ResourceType = "s3"
	ResourceRDS    ResourceType = "rds"
	ResourceEBS    ResourceType = "ebs"
)

// AllResourceTypes lists every resource type with a registered scanner.
func AllResourceTypes() []ResourceType {
	return []ResourceType{ResourceEC2, ResourceLambda, ResourceS3, ResourceRDS, ResourceEBS}
}

// ParseResourceType converts a user-supplied string into a ResourceType.
func ParseResourceType(s string) (ResourceType, error) {
	switch ResourceType(s) {
	case ResourceEC2, ResourceLambda, ResourceS3, ResourceRDS, ResourceEBS:
		return ResourceType(s), nil
	}
	return "", fmt.Errorf("unknown resource type %q (expected one of ec2, lambda, s3, rds, ebs)", s)
}

// Resource is a point-in-time snapshot of a cloud resource and its tags.
// It is produced by a scan and never tracks the live resource afterwards.
type Resource struct {
	ID     string            `json:"id"`
	Type   ResourceType      `json:"type"`
	Region string            `json:"region"`
	Name   string            `json:"name,omitempty"`
	State  string            `json:"state,omitempty"`
	Tags   map[string]string `json:"tags"`
}

// IsTagged reports whether the resource carries at least one tag.
func (r *Resource) IsTagged() bool {
	return len(r.Tags) > 0
}

// HasRequiredTags reports whether every key in required is present.
func (r *Resource) HasRequiredTags(required []string) bool {
	for _, key := range required {
		if _, ok := r.Tags[key]; !ok {
			return false
		}
	}
	return true
}

// CloneTags returns a copy of the tag map, never nil.
func (r *Resource) CloneTags() map[string]string {
	tags := make(map[string]string, len(r.Tags))
	for k, v := range r.Tags {
		tags[k] = v
	}
	return tags
}
