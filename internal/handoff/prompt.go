package handoff

import "strings"

const (
	// skillDirective is a single-submit pragma the command dispatcher
	// understands; it enables the session-query tool in the new session.
	skillDirective = "/skill:pi-session-query"

	// parentMarker is the sentinel other extensions look for to detect a
	// handoff prompt.
	parentMarker = "**Parent session:**"

	ancestorHeading = "**Ancestor sessions:**"
)

// AssemblePrompt composes the editor-ready prompt: the summary body, the
// collapsed file markers, and, when a parent exists, a header block naming
// the parent and its ancestors so a later turn can query any of them.
func AssemblePrompt(summary string, ops *FileOps, parentSession string) string {
	body := summary
	if ops != nil {
		body += "\n\n" + ops.MarkersText
	}

	if parentSession == "" {
		return body
	}

	chain := Ancestry(parentSession)

	var b strings.Builder
	b.WriteString(skillDirective)
	b.WriteString("\n\n")
	b.WriteString(parentMarker)
	b.WriteString(" `")
	b.WriteString(chain[0])
	b.WriteString("`\n")
	if len(chain) > 1 {
		b.WriteString("\n")
		b.WriteString(ancestorHeading)
		b.WriteString("\n")
		for _, ancestor := range chain[1:] {
			b.WriteString("- `")
			b.WriteString(ancestor)
			b.WriteString("`\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}
