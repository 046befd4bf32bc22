package handoff

import (
	"github.com/relaycode/relay/internal/session"
)

// gatherConversation serializes the active branch for the summary call. It
// reads the compaction-aware projection, so messages a previous compaction
// already summarized away are represented by that summary rather than
// re-fed in full — the input never exceeds the view the host itself would
// present to the model on the next turn. Returns "" when there is nothing
// to hand off.
func (e *Engine) gatherConversation() string {
	view := e.store.View()
	if len(view.Messages) == 0 {
		return ""
	}

	text := session.FormatTranscript(view.Messages)
	if view.Summary != "" {
		text = "## Earlier Conversation (summarized)\n\n" + view.Summary +
			"\n\n## Recent Conversation\n\n" + text
	}
	return text
}
