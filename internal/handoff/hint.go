package handoff

import "github.com/relaycode/relay/internal/event"

// systemPromptHint is appended to every outgoing system prompt. It teaches
// the model that the /handoff command exists, when it works best, and that
// it should suggest one before context runs out.
const systemPromptHint = `

## Session Handoff

This host supports a /handoff command that moves the conversation into a
new session carrying a compact, goal-directed summary instead of the full
history. Handoffs work best right after a planning phase, when the goal is
crisp and the residue worth carrying is small. When context usage is high,
suggest a /handoff to the user instead of letting earlier context be lost.`

// onBeforeAgentStart appends the handoff hint to the outgoing system
// prompt. Append only; the rest of the prompt is untouched.
func (e *Engine) onBeforeAgentStart(ev *event.HookEvent) *event.HookResult {
	p, ok := ev.Data.(*event.BeforeAgentStartPayload)
	if !ok {
		return nil
	}
	s := p.SystemPrompt + systemPromptHint
	return &event.HookResult{SystemPrompt: &s}
}
