package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/internal/session"
	"github.com/relaycode/relay/internal/tool"
	"github.com/relaycode/relay/pkg/types"
)

const sessionQueryDescription = `Answer a question about another session's transcript.

Loads the session file at the given path, reads its conversation, and asks
the model the question against that transcript. Use it to recover context
from a parent or ancestor session after a handoff — the handoff prompt
lists their paths under "Parent session" and "Ancestor sessions".`

const sessionQuerySystemPrompt = `You answer questions about a recorded conversation transcript. Answer only
from the transcript; say so plainly when it does not contain the answer.
Quote exact paths, names, and error text where they matter.`

// sessionQueryInput is the session_query tool's argument shape.
type sessionQueryInput struct {
	SessionFile string `json:"sessionFile"`
	Question    string `json:"question"`
}

// SessionQueryTool loads any session file and asks the model one question
// about it. It is the collaborator the assembled handoff prompt's skill
// directive points at.
type SessionQueryTool struct {
	models ModelClient
}

// NewSessionQueryTool creates the tool against a model client.
func NewSessionQueryTool(models ModelClient) *SessionQueryTool {
	return &SessionQueryTool{models: models}
}

func (t *SessionQueryTool) ID() string          { return "session_query" }
func (t *SessionQueryTool) Description() string { return sessionQueryDescription }

func (t *SessionQueryTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"sessionFile": {
				"type": "string",
				"description": "Path to the session file to query"
			},
			"question": {
				"type": "string",
				"description": "The question to answer from that session"
			}
		},
		"required": ["sessionFile", "question"]
	}`)
}

func (t *SessionQueryTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	var params sessionQueryInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.SessionFile == "" || strings.TrimSpace(params.Question) == "" {
		return nil, fmt.Errorf("sessionFile and question are required")
	}

	transcript, err := LoadTranscript(params.SessionFile)
	if err != nil {
		return nil, err
	}

	model, err := t.models.DefaultModel()
	if err != nil {
		return nil, fmt.Errorf("no model available: %w", err)
	}
	ref := types.ModelRef{ProviderID: model.ProviderID, ModelID: model.ID}
	apiKey, err := t.models.GetAPIKey(ref)
	if err != nil {
		return nil, fmt.Errorf("no API key for %s: %w", ref.ProviderID, err)
	}

	resp, err := t.models.Complete(ctx, ref, &provider.CompleteRequest{
		SystemPrompt: sessionQuerySystemPrompt,
		Messages: []*schema.Message{{
			Role: schema.User,
			Content: "## Transcript\n\n" + transcript +
				"\n\n## Question\n\n" + params.Question,
		}},
	}, &provider.CompleteOptions{APIKey: apiKey})
	if err != nil {
		return nil, err
	}

	switch resp.StopReason {
	case provider.StopAborted:
		return nil, context.Canceled
	case provider.StopError:
		message := resp.ErrorMessage
		if message == "" {
			message = "LLM request failed"
		}
		return nil, fmt.Errorf("session query failed: %s", message)
	}

	return &tool.Result{Title: params.SessionFile, Output: resp.Text}, nil
}

// EinoTool returns an Eino-compatible wrapper.
func (t *SessionQueryTool) EinoTool() einotool.InvokableTool {
	return tool.NewBaseTool(t.ID(), t.Description(), t.Parameters(), t.Execute).EinoTool()
}

// LoadTranscript reads a session file without touching the live store and
// renders its compaction-aware branch view as transcript text.
func LoadTranscript(path string) (string, error) {
	j, err := session.ReadJournal(path)
	if err != nil {
		return "", err
	}

	view := j.View()
	if len(view.Messages) == 0 && view.Summary == "" {
		return "", fmt.Errorf("session has no messages: %s", path)
	}

	text := session.FormatTranscript(view.Messages)
	if view.Summary != "" {
		text = "## Earlier Conversation (summarized)\n\n" + view.Summary +
			"\n\n## Recent Conversation\n\n" + text
	}
	return text, nil
}
