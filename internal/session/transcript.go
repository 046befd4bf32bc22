package session

import (
	"fmt"
	"strings"

	"github.com/relaycode/relay/pkg/types"
)

// transcriptToolOutputLimit truncates tool outputs in rendered transcripts
// so a single verbose tool call cannot dominate a summary prompt.
const transcriptToolOutputLimit = 500

// FormatTranscript renders messages as role-prefixed text blocks. This is
// the one serialization both the compaction summarizer and the handoff
// summary generator feed to the model, so the two stay comparable.
func FormatTranscript(messages []types.MessageWithParts) string {
	var b strings.Builder

	for _, msg := range messages {
		if msg.Info == nil {
			continue
		}
		switch msg.Info.Role {
		case "user":
			b.WriteString("USER:\n")
		case "system":
			b.WriteString("SYSTEM:\n")
		default:
			b.WriteString("ASSISTANT:\n")
		}

		for _, part := range msg.Parts {
			switch pt := part.(type) {
			case *types.TextPart:
				b.WriteString(pt.Text)
				b.WriteString("\n")
			case *types.ToolPart:
				b.WriteString(fmt.Sprintf("[Tool: %s]\n", pt.ToolName))
				if pt.Output != nil && *pt.Output != "" {
					output := *pt.Output
					if len(output) > transcriptToolOutputLimit {
						output = output[:transcriptToolOutputLimit] + "..."
					}
					b.WriteString(output)
					b.WriteString("\n")
				}
			}
		}

		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
