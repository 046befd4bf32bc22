package handoff

import (
	"context"
	"fmt"

	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/session"
	"github.com/relaycode/relay/internal/ui"
)

// Compact-hook choices, presented in this order.
const (
	choiceHandoff  = "Handoff to new session"
	choiceCompact  = "Compact context"
	choiceContinue = "Continue without either"
)

// onBeforeCompact intercepts in-place compaction. Choosing "Compact
// context", dismissing the dialog, or any failure along the way returns nil
// so compaction proceeds; a fully installed handoff and "Continue without
// either" cancel it.
func (e *Engine) onBeforeCompact(ev *event.HookEvent) *event.HookResult {
	p, ok := ev.Data.(*event.BeforeCompactPayload)
	if !ok || p.Preparation == nil {
		return nil
	}
	if e.surface == nil {
		return nil
	}
	if _, err := e.models.DefaultModel(); err != nil {
		return nil
	}

	usage := "high"
	if p.Preparation.ContextPct > 0 {
		usage = fmt.Sprintf("%d%%", p.Preparation.ContextPct)
	}
	title := fmt.Sprintf("Context is %s full. Hand off to a new session?", usage)

	choice, err := e.surface.Select(context.Background(), title,
		[]string{choiceHandoff, choiceCompact, choiceContinue})
	if err != nil || choice == choiceCompact {
		return nil
	}
	if choice == choiceContinue {
		return &event.HookResult{Cancel: true}
	}

	// Summarize the same restricted subset the host staged for compaction;
	// re-gathering the full branch would re-introduce the overflow that
	// fired this hook.
	conversation := session.FormatTranscript(p.Preparation.MessagesToSummarize)
	if p.Preparation.PreviousSummary != "" {
		conversation = p.Preparation.PreviousSummary +
			"\n\n## Recent Conversation\n\n" + conversation
	}

	result := e.GenerateSummary(context.Background(), conversation, "Continue the work in progress")
	if result == nil {
		e.surface.Notify("Handoff cancelled. Compacting instead.", ui.Warn)
		return nil
	}
	if result.Kind == SummaryFailed {
		e.surface.Notify("Handoff failed: "+result.Message+". Compacting instead.", ui.Warn)
		return nil
	}

	parent := e.store.SessionFile()
	ops := ExtractFileOps(p.Preparation.MessagesToSummarize)
	prompt := AssemblePrompt(result.Text, ops, parent)

	e.setTimestamp()
	if _, err := e.store.NewSession(session.NewSessionOptions{ParentSession: parent}); err != nil {
		e.clearTimestamp()
		e.surface.Notify("Handoff failed: "+err.Error()+". Compacting instead.", ui.Warn)
		return nil
	}

	e.stageMarkers(ops)
	e.activateMarkers()
	e.surface.SetEditorText(prompt)
	e.surface.Notify(handoffReadyNotice, ui.Info)
	return &event.HookResult{Cancel: true}
}
