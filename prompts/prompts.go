// Package prompts holds the prompt text for the compliance assistant.
package prompts

import (
	"strings"

	"github.com/tagsense/tagsense/llm"
	"github.com/tagsense/tagsense/memory"
)

// System is the persona every assistant conversation starts from.
const System = `You are a cloud resource tagging and compliance expert.
You help teams find untagged resources, explain tag compliance gaps, and
recommend tagging strategies for cost allocation and ownership tracking.

Guidelines:
- Be specific: name resource IDs, regions, and counts when they are in the
  provided scan context.
- Recommend concrete tag keys (Owner, Environment, CostCenter, Project)
  rather than vague advice.
- If the scan context does not contain the data needed to answer, say so
  instead of guessing.
- Keep answers short and actionable.`

// Thread assembles the conversation sent to a provider: the system
// persona, with recent scan context folded in when there is any,
// followed by the retained turns oldest first. Scan context lives in
// the system message so every turn of a session is grounded in the
// same observations.
func Thread(history []memory.Turn, scanContext string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt(scanContext)})
	for _, turn := range history {
		msgs = append(msgs, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return msgs
}

func systemPrompt(scanContext string) string {
	if scanContext == "" {
		return System
	}
	var b strings.Builder
	b.WriteString(System)
	b.WriteString("\n\nRecent scan context:\n")
	b.WriteString(scanContext)
	return b.String()
}
