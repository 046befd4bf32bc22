package session

import (
	"context"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/pkg/types"
)

const titleSystemPrompt = `You are a title generator. You output ONLY a thread title. Nothing else.

Generate a brief title that would help the user find this conversation later.

Rules:
- A single line, ≤50 characters
- No explanations
- Use -ing verbs for actions (Debugging, Implementing, Analyzing)
- Keep exact: technical terms, numbers, filenames
- Remove: the, this, my, a, an
- Always output something meaningful

Examples:
"debug 500 errors in production" → Debugging production 500 errors
"refactor user service" → Refactoring user service
"implement rate limiting" → Implementing rate limiting`

const (
	defaultTitlePrefix = "New Session"
	maxTitleLen        = 100
)

// isDefaultTitle checks if a title is the default "New Session" title.
func isDefaultTitle(title string) bool {
	return strings.HasPrefix(title, defaultTitlePrefix)
}

// ensureTitle names a session from its first user message. Child sessions
// and already-named sessions keep their title; every failure is silent,
// naming is best-effort.
func (p *Processor) ensureTitle(
	ctx context.Context,
	session *types.Session,
	userContent string,
) {
	if session.ParentID != nil && *session.ParentID != "" {
		return
	}
	if !isDefaultTitle(session.Title) {
		return
	}

	raw, err := p.generateTitle(ctx, userContent)
	if err != nil {
		return
	}

	title := cleanupTitle(raw)
	if title == "" {
		return
	}

	session.Title = title
	p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session)

	event.PublishSync(event.Event{
		Type: event.SessionUpdated,
		Data: event.SessionUpdatedData{Info: session},
	})
}

// generateTitle runs one short completion against the default model.
func (p *Processor) generateTitle(ctx context.Context, userContent string) (string, error) {
	model, err := p.providerRegistry.DefaultModel()
	if err != nil {
		return "", err
	}
	prov, err := p.providerRegistry.Get(model.ProviderID)
	if err != nil {
		return "", err
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model: model.ID,
		Messages: []*schema.Message{
			{Role: schema.System, Content: titleSystemPrompt},
			{Role: schema.User, Content: "Generate a title for this conversation:\n\n" + userContent},
		},
		MaxTokens: 50, // Short title
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		b.WriteString(msg.Content)
	}
	return b.String(), nil
}

// cleanupTitle takes the first non-empty line and bounds its length.
func cleanupTitle(raw string) string {
	title := ""
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = line
			break
		}
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen-3] + "..."
	}
	return title
}
