package handoff

import (
	"context"
	"errors"
	"strings"

	"github.com/relaycode/relay/internal/session"
	"github.com/relaycode/relay/internal/ui"
)

// CommandContext is the privileged surface a slash command runs with. Its
// NewSession fires the host's full event fan-out, including the
// session_switch dispatch, before it returns. It may return ui.ErrCancelled
// when the user backs out of session creation.
type CommandContext interface {
	NewSession(opts session.NewSessionOptions) (string, error)
}

// HandleCommand is the /handoff <goal> entry point. The agent loop is idle
// here, so the switch happens inline through the privileged creator; the
// editor install runs inside the resulting session_switch dispatch, after
// the new session is current.
func (e *Engine) HandleCommand(ctx context.Context, cctx CommandContext, args string) {
	if e.surface == nil {
		return
	}

	goal := strings.TrimSpace(args)
	if goal == "" {
		e.surface.Notify("Usage: /handoff <goal for the new session>", ui.Error)
		return
	}
	if _, err := e.models.DefaultModel(); err != nil {
		e.surface.Notify("No model available for handoff", ui.Error)
		return
	}

	conversation := e.gatherConversation()
	if conversation == "" {
		e.surface.Notify("Nothing to hand off: the conversation is empty", ui.Error)
		return
	}

	result := e.GenerateSummary(ctx, conversation, goal)
	if result == nil {
		e.surface.Notify("Handoff cancelled", ui.Info)
		return
	}
	if result.Kind == SummaryFailed {
		e.surface.Notify("Handoff failed: "+result.Message, ui.Error)
		return
	}

	parent := e.store.SessionFile()
	ops := ExtractFileOps(e.store.View().Messages)
	prompt := AssemblePrompt(result.Text, ops, parent)

	if parent != "" {
		e.mu.Lock()
		e.pendingText[parent] = prompt
		e.mu.Unlock()
	}
	e.stageMarkers(ops)

	// The editor is installed by onSessionSwitch, which the creator fires
	// before returning.
	_, err := cctx.NewSession(session.NewSessionOptions{
		ParentSession: parent,
		Slug:          Slug(goal),
	})
	if err != nil {
		if parent != "" {
			e.mu.Lock()
			delete(e.pendingText, parent)
			e.mu.Unlock()
		}
		if errors.Is(err, ui.ErrCancelled) {
			e.surface.Notify("New session cancelled", ui.Info)
		} else {
			e.surface.Notify("Failed to create session: "+err.Error(), ui.Error)
		}
		return
	}

	e.activateMarkers()
}
