package handoff

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/internal/ui"
	"github.com/relaycode/relay/pkg/types"
)

// summarySystemPrompt pins the summary's shape. The model summarizes; it
// must not keep playing the conversation.
const summarySystemPrompt = `You are generating a handoff summary: a compact briefing that lets a new
session continue this work without the original transcript.

Produce EXACTLY this structure, in markdown:

## Goal
One or two sentences restating the user's goal for the new thread.

## Constraints & Preferences
Requirements, style rules, and choices the user has expressed. Omit the
section if there are none.

## Progress
### Done
### In Progress
### Blocked
Bullet lists under each. Omit empty subsections.

## Key Decisions
Decisions made so far and the reasons that still matter.

## Next Steps
Concrete, ordered next actions toward the goal.

## Critical Context
Facts, paths, identifiers, and gotchas the new session must not lose.

Rules:
- Summarize only. Do NOT continue the conversation.
- Do NOT answer questions that appear in the history.
- Do NOT invent work that did not happen.
- Be specific: exact file paths, exact names, exact error text.`

// SummaryKind classifies a generator outcome.
type SummaryKind int

const (
	// SummaryPrompt means Text holds a usable summary.
	SummaryPrompt SummaryKind = iota
	// SummaryFailed means Message holds the failure to surface.
	SummaryFailed
)

// SummaryResult is the generator's outcome. A nil *SummaryResult means the
// user cancelled via the loader.
type SummaryResult struct {
	Kind    SummaryKind
	Text    string
	Message string
}

func summaryError(message string) *SummaryResult {
	return &SummaryResult{Kind: SummaryFailed, Message: message}
}

// GenerateSummary drives one non-streaming completion under a cancellable
// loader and flattens every outcome into the three-way result: prompt,
// failure, or nil for cancelled.
func (e *Engine) GenerateSummary(ctx context.Context, conversation, goal string) *SummaryResult {
	model, err := e.models.DefaultModel()
	if err != nil {
		return summaryError("no model available")
	}
	ref := types.ModelRef{ProviderID: model.ProviderID, ModelID: model.ID}

	apiKey, err := e.models.GetAPIKey(ref)
	if err != nil {
		return summaryError("no API key for " + ref.ProviderID)
	}

	req := &provider.CompleteRequest{
		SystemPrompt: summarySystemPrompt,
		Messages: []*schema.Message{{
			Role: schema.User,
			Content: "## Conversation History\n\n" + conversation +
				"\n\n## User's Goal for New Thread\n\n" + goal,
		}},
	}

	var resp *provider.CompleteResponse
	err = e.surface.WithLoader(ctx, "Generating handoff summary", func(ctx context.Context) error {
		r, cerr := e.models.Complete(ctx, ref, req, &provider.CompleteOptions{APIKey: apiKey})
		resp = r
		return cerr
	})
	if errors.Is(err, ui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return summaryError(err.Error())
	}

	switch resp.StopReason {
	case provider.StopAborted:
		return nil
	case provider.StopError:
		message := resp.ErrorMessage
		if message == "" {
			message = "LLM request failed"
		}
		return summaryError(message)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return summaryError("LLM returned empty response")
	}
	return &SummaryResult{Kind: SummaryPrompt, Text: text}
}
