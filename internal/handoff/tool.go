package handoff

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/relaycode/relay/internal/tool"
)

const toolDescription = `Hand the conversation off to a new, focused session.

Use this when the current thread's goal has crystallized and most of the
history is no longer needed — typically right after a plan is agreed, or
when context usage is high. A structured summary of the conversation is
generated and placed in the new session's editor for the user to review and
send.

The switch is deferred: it happens after the current turn completes, so
finish the turn normally after calling this tool.`

// toolInput is the handoff tool's argument shape.
type toolInput struct {
	Goal string `json:"goal"`
}

// Tool is the agent-invocable handoff entry point. The agent loop is active
// while Execute runs, so the session switch is deferred: Execute only arms
// the pending register, and the agent_end drain performs the switch.
type Tool struct {
	engine *Engine
}

// NewTool creates the handoff tool bound to an engine.
func NewTool(e *Engine) *Tool {
	return &Tool{engine: e}
}

func (t *Tool) ID() string          { return "handoff" }
func (t *Tool) Description() string { return toolDescription }

func (t *Tool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"goal": {
				"type": "string",
				"description": "The user's goal for the new session"
			}
		},
		"required": ["goal"]
	}`)
}

// Execute runs synchronously with respect to the tool call: it generates
// the summary and arms the deferred switch. Failures come back as the
// tool's text content so the agent can see and react to them.
func (t *Tool) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	var params toolInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	e := t.engine
	if e.surface == nil {
		return toolText("Handoff unavailable: no interactive UI."), nil
	}
	if params.Goal == "" {
		return toolText("Handoff failed: goal must not be empty."), nil
	}
	if _, err := e.models.DefaultModel(); err != nil {
		return toolText("Handoff failed: no model available."), nil
	}

	conversation := e.gatherConversation()
	if conversation == "" {
		return toolText("Handoff failed: the conversation is empty."), nil
	}

	result := e.GenerateSummary(ctx, conversation, params.Goal)
	if result == nil {
		return toolText("Handoff cancelled by the user."), nil
	}
	if result.Kind == SummaryFailed {
		return toolText("Handoff failed: " + result.Message), nil
	}

	parent := e.store.SessionFile()
	ops := ExtractFileOps(e.store.View().Messages)
	prompt := AssemblePrompt(result.Text, ops, parent)
	e.stageMarkers(ops)

	e.mu.Lock()
	e.pending = &pendingHandoff{
		prompt:        prompt,
		parentSession: parent,
		slug:          Slug(params.Goal),
	}
	e.mu.Unlock()

	return toolText("Handoff initiated. The session will switch after the current turn completes."), nil
}

// EinoTool returns an Eino-compatible wrapper.
func (t *Tool) EinoTool() einotool.InvokableTool {
	return tool.NewBaseTool(t.ID(), t.Description(), t.Parameters(), t.Execute).EinoTool()
}

func toolText(text string) *tool.Result {
	return &tool.Result{Title: "handoff", Output: text}
}
