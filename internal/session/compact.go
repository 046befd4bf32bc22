package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/logging"
	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/pkg/types"
)

// CompactionConfig controls message compaction behavior.
type CompactionConfig struct {
	// MinMessagesToKeep is the minimum number of recent messages to keep.
	MinMessagesToKeep int

	// SummaryMaxTokens is the maximum tokens for the summary.
	SummaryMaxTokens int

	// ContextThreshold is the fraction of context usage that triggers compaction.
	ContextThreshold float64
}

// DefaultCompactionConfig returns the default compaction configuration.
var DefaultCompactionConfig = CompactionConfig{
	MinMessagesToKeep: 4,
	SummaryMaxTokens:  2000,
	ContextThreshold:  0.75,
}

// compactionSystemPrompt is the system prompt for generating summaries.
const compactionSystemPrompt = `You are a conversation summarizer. Create a concise summary of the conversation that preserves key context for continuing the discussion.

Focus on:
1. What was accomplished
2. Current work in progress
3. Files involved
4. Next steps
5. Any key user requests or constraints

Be concise but detailed enough that work can continue seamlessly.`

// contextUsagePct estimates how full the context window is, 0-100.
func (p *Processor) contextUsagePct(messages []*types.Message) int {
	totalTokens := 0
	for _, msg := range messages {
		if msg.Tokens != nil {
			totalTokens += msg.Tokens.Input + msg.Tokens.Output
		}
	}
	pct := totalTokens * 100 / MaxContextTokens
	if pct > 100 {
		pct = 100
	}
	return pct
}

// compactMessages summarizes old messages in place to free context. Before
// doing anything it offers the prepared subset to the before-compact hook;
// a handler returning cancel (the handoff engine, after installing a new
// session) skips the compaction entirely.
func (p *Processor) compactMessages(
	ctx context.Context,
	sessionID string,
	messages []*types.Message,
) error {
	if len(messages) <= DefaultCompactionConfig.MinMessagesToKeep {
		return nil
	}

	// Determine which messages to compact
	compactEnd := len(messages) - DefaultCompactionConfig.MinMessagesToKeep
	toCompact := messages[:compactEnd]

	// Offer the prepared subset to hook handlers first
	if p.hooks != nil {
		preparation := &event.CompactPreparation{
			PreviousSummary:     p.previousSummary(),
			MessagesToSummarize: p.withParts(ctx, toCompact),
			ContextPct:          p.contextUsagePct(messages),
		}
		sessionFile := ""
		if p.journal != nil {
			sessionFile = p.journal.SessionFile()
		}
		result := p.hooks.Run(&event.HookEvent{
			Type: event.SessionBeforeCompact,
			Data: &event.BeforeCompactPayload{SessionFile: sessionFile, Preparation: preparation},
		})
		if result.Cancel {
			logging.Debug().Str("session", sessionID).Msg("compaction cancelled by hook")
			return nil
		}
	}

	// Update session compacting flag
	session, err := p.findSession(ctx, sessionID)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	session.Time.Compacting = &now
	p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session)

	defer func() {
		session.Time.Compacting = nil
		p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session)
	}()

	// Build summary prompt
	summaryPrompt := p.buildSummaryPrompt(ctx, toCompact)

	// Get default model for summarization
	model, err := p.providerRegistry.DefaultModel()
	if err != nil {
		return err
	}

	prov, err := p.providerRegistry.Get(model.ProviderID)
	if err != nil {
		return err
	}

	systemMsg := &schema.Message{
		Role:    schema.System,
		Content: compactionSystemPrompt,
	}
	userMsg := &schema.Message{
		Role:    schema.User,
		Content: summaryPrompt,
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model:     model.ID,
		Messages:  []*schema.Message{systemMsg, userMsg},
		MaxTokens: DefaultCompactionConfig.SummaryMaxTokens,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	// Collect response
	var summary strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		summary.WriteString(msg.Content)
	}

	// Record the compaction point; the branch view excludes everything
	// before it from now on.
	if p.journal != nil {
		if err := p.journal.AppendCompaction(summary.String()); err != nil {
			return fmt.Errorf("failed to record compaction: %w", err)
		}
	}

	event.PublishSync(event.Event{
		Type: event.SessionCompacted,
		Data: event.SessionCompactedData{SessionID: sessionID},
	})

	logging.Info().
		Str("session", sessionID).
		Int("compacted", len(toCompact)).
		Msg("conversation compacted")

	return nil
}

// previousSummary returns the summary an earlier compaction left on the
// branch, if any.
func (p *Processor) previousSummary() string {
	if p.journal == nil {
		return ""
	}
	return p.journal.View().Summary
}

// withParts attaches stored parts to the given messages.
func (p *Processor) withParts(ctx context.Context, messages []*types.Message) []types.MessageWithParts {
	result := make([]types.MessageWithParts, 0, len(messages))
	for _, msg := range messages {
		parts, err := p.loadParts(ctx, msg.ID)
		if err != nil {
			parts = nil
		}
		result = append(result, types.MessageWithParts{Info: msg, Parts: parts})
	}
	return result
}

// buildSummaryPrompt creates a prompt for summarizing messages.
func (p *Processor) buildSummaryPrompt(ctx context.Context, messages []*types.Message) string {
	var prompt strings.Builder

	prompt.WriteString("Please summarize the following conversation, focusing on:\n")
	prompt.WriteString("1. Key decisions and outcomes\n")
	prompt.WriteString("2. Files that were modified\n")
	prompt.WriteString("3. Important context for continuing the work\n\n")
	prompt.WriteString("---\n\n")
	prompt.WriteString(FormatTranscript(p.withParts(ctx, messages)))

	return prompt.String()
}

// estimateTokens provides a rough estimate of token count.
func estimateTokens(text string) int {
	// Rough estimate: ~4 characters per token
	return len(text) / 4
}
