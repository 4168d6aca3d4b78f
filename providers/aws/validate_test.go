package aws

import (
	"testing"

	"github.com/tagsense/tagsense/types"
)

func TestValidateResourceID(t *testing.T) {
	tests := []struct {
		name    string
		rt      types.ResourceType
		id      string
		wantErr bool
	}{
		{"valid instance id", types.ResourceEC2, "i-0abc123def4567890", false},
		{"short legacy instance id", types.ResourceEC2, "i-12345678", false},
		{"instance id wrong prefix", types.ResourceEC2, "vol-12345678", true},
		{"instance id uppercase hex", types.ResourceEC2, "i-0ABC123DEF4567890", true},
		{"valid volume id", types.ResourceEBS, "vol-0abc123def4567890", false},
		{"volume id missing prefix", types.ResourceEBS, "0abc123def4567890", true},
		{"valid function name", types.ResourceLambda, "billing-rollup_v2", false},
		{"function name with slash", types.ResourceLambda, "team/function", true},
		{"valid bucket", types.ResourceS3, "prod-artifacts.us-east-1", false},
		{"bucket with uppercase", types.ResourceS3, "Prod-Artifacts", true},
		{"bucket with double dots", types.ResourceS3, "prod..artifacts", true},
		{"valid db identifier", types.ResourceRDS, "orders-primary", false},
		{"db identifier leading digit", types.ResourceRDS, "1orders", true},
		{"db identifier trailing hyphen", types.ResourceRDS, "orders-", true},
		{"db identifier double hyphen", types.ResourceRDS, "orders--primary", true},
		{"unknown resource type", types.ResourceType("dynamodb"), "whatever", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResourceID(tt.rt, tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateResourceID(%s, %q) error = %v, wantErr %v", tt.rt, tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTags(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name    string
		tags    map[string]string
		wantErr bool
	}{
		{"valid", map[string]string{"Owner": "team-a", "Environment": "prod"}, false},
		{"empty set", map[string]string{}, true},
		{"empty key", map[string]string{"": "v"}, true},
		{"oversized value", map[string]string{"Owner": string(long)}, true},
		{"oversized key", map[string]string{string(long): "v"}, true},
		{"reserved prefix", map[string]string{"aws:createdBy": "me"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTags(tt.tags)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTags(%v) error = %v, wantErr %v", tt.tags, err, tt.wantErr)
			}
		})
	}
}
