package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagsense/tagsense/llm"
	"github.com/tagsense/tagsense/memory"
)

func TestThreadWithContext(t *testing.T) {
	history := []memory.Turn{
		{Role: llm.RoleUser, Content: "which ec2 instances need tags?"},
	}
	msgs := Thread(history, "scanned ec2 in us-east-1: 4 untagged of 10")

	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "4 untagged of 10")
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, "which ec2 instances need tags?", msgs[1].Content)
}

func TestThreadWithoutContext(t *testing.T) {
	history := []memory.Turn{
		{Role: llm.RoleUser, Content: "what tags matter for cost allocation?"},
	}
	msgs := Thread(history, "")

	require.Len(t, msgs, 2)
	assert.Equal(t, System, msgs[0].Content)
	assert.NotContains(t, msgs[0].Content, "Recent scan context")
}

func TestThreadPreservesTurnOrder(t *testing.T) {
	history := []memory.Turn{
		{Role: llm.RoleUser, Content: "how many untagged volumes?"},
		{Role: llm.RoleAssistant, Content: "3 volumes are untagged."},
		{Role: llm.RoleUser, Content: "which regions are they in?"},
	}
	msgs := Thread(history, "scanned ebs in us-east-1: 3 untagged of 7")

	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, "how many untagged volumes?", msgs[1].Content)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "which regions are they in?", msgs[3].Content)
}
