package handoff

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/idgen"
	"github.com/relaycode/relay/internal/logging"
	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/internal/session"
	"github.com/relaycode/relay/internal/ui"
	"github.com/relaycode/relay/pkg/types"
)

// handoffReadyNotice is shown whenever a generated prompt lands in the
// editor.
const handoffReadyNotice = "Handoff ready — edit if needed, press Enter to send"

// Store is the slice of the session manager the engine needs: the active
// file, the compaction-aware branch projection, and the raw switch.
type Store interface {
	SessionFile() string
	View() *session.BranchView
	NewSession(opts session.NewSessionOptions) (string, error)
}

// ModelClient resolves and drives the model used for summary generation.
// *provider.Registry satisfies it.
type ModelClient interface {
	DefaultModel() (*types.Model, error)
	GetAPIKey(ref types.ModelRef) (string, error)
	Complete(ctx context.Context, ref types.ModelRef, req *provider.CompleteRequest, opts *provider.CompleteOptions) (*provider.CompleteResponse, error)
}

// pendingHandoff is the one-slot register the tool path arms; agent_end
// drains it.
type pendingHandoff struct {
	prompt        string
	parentSession string
	slug          string
}

// Engine owns every piece of mutable handoff state and exposes the hook
// handlers, the command entry point, and the tool entry point. All handlers
// run on the hook bus's dispatch goroutine; the mutex only guards against
// the CLI calling HandleCommand from another goroutine.
type Engine struct {
	hooks   *event.HookBus
	store   Store
	surface ui.Surface
	models  ModelClient
	log     zerolog.Logger

	mu sync.Mutex
	// handoffTimestamp marks "messages before this instant belong to the
	// pre-switch session". Zero means unset. Cleared by any proper
	// session switch.
	handoffTimestamp int64
	pending          *pendingHandoff
	// pendingText holds command-path prompts keyed by parent session file
	// until the matching session_switch installs them. Single use.
	pendingText map[string]string
	// markers is the active marker store; staged holds expansions that
	// arm when editor text lands.
	markers map[string]string
	staged  map[string]string

	// now is the store's clock; swapped in tests.
	now func() int64
}

// NewEngine wires an engine to its collaborators. The surface may be nil in
// headless runs; every entry point degrades to a no-op or an error result.
func NewEngine(hooks *event.HookBus, store Store, surface ui.Surface, models ModelClient) *Engine {
	return &Engine{
		hooks:       hooks,
		store:       store,
		surface:     surface,
		models:      models,
		log:         logging.With().Str("component", "handoff").Logger(),
		pendingText: make(map[string]string),
		now:         idgen.Timestamp,
	}
}

// Register subscribes the engine's handlers on the hook bus.
func (e *Engine) Register() {
	e.hooks.On(event.BeforeAgentStart, e.onBeforeAgentStart)
	e.hooks.On(event.SessionSwitch, e.onSessionSwitch)
	e.hooks.On(event.ContextBuild, e.onContext)
	e.hooks.On(event.Input, e.onInput)
	e.hooks.On(event.AgentEnd, e.onAgentEnd)
	e.hooks.On(event.SessionBeforeCompact, e.onBeforeCompact)
}

// onSessionSwitch clears the handoff timestamp — a proper switch replaces
// whatever raw switch may have been in flight — and installs the pending
// command-path prompt when the new session's header names a parent we
// staged text for.
func (e *Engine) onSessionSwitch(ev *event.HookEvent) *event.HookResult {
	p, ok := ev.Data.(*event.SessionSwitchPayload)
	if !ok {
		return nil
	}

	e.mu.Lock()
	e.handoffTimestamp = 0
	var prompt string
	var found bool
	if p.Header != nil && p.Header.ParentSession != "" {
		prompt, found = e.pendingText[p.Header.ParentSession]
		if found {
			delete(e.pendingText, p.Header.ParentSession)
		}
	}
	e.mu.Unlock()

	if !found || e.surface == nil {
		return nil
	}

	e.surface.SetEditorText(prompt)
	e.surface.Notify(handoffReadyNotice, ui.Info)
	return nil
}

// onContext drops messages that predate a raw session switch. After the
// store switches, the agent's in-memory working set is stale for one tick;
// the timestamp is the narrow correction. An all-stale list passes through
// untouched — the model is never fed an empty context because of a filter.
func (e *Engine) onContext(ev *event.HookEvent) *event.HookResult {
	p, ok := ev.Data.(*event.ContextPayload)
	if !ok {
		return nil
	}

	e.mu.Lock()
	ts := e.handoffTimestamp
	e.mu.Unlock()
	if ts == 0 {
		return nil
	}

	filtered := make([]types.MessageWithParts, 0, len(p.Messages))
	for _, m := range p.Messages {
		if m.Timestamp() >= ts {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 || len(filtered) == len(p.Messages) {
		return nil
	}
	return &event.HookResult{Messages: &filtered}
}

// onAgentEnd drains the pending handoff the tool path armed: stamp the
// timestamp, raw-switch to the child session, and defer the editor install
// until the agent loop's own cleanup has run.
func (e *Engine) onAgentEnd(ev *event.HookEvent) *event.HookResult {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	if pending != nil {
		e.handoffTimestamp = e.now()
	}
	e.mu.Unlock()

	if pending == nil {
		return nil
	}

	newFile, err := e.store.NewSession(session.NewSessionOptions{
		ParentSession: pending.parentSession,
		Slug:          pending.slug,
	})
	if err != nil {
		e.mu.Lock()
		e.handoffTimestamp = 0
		e.mu.Unlock()
		e.log.Error().Err(err).Msg("deferred session switch failed")
		return nil
	}

	e.log.Debug().Str("file", newFile).Msg("deferred handoff switched sessions")

	prompt := pending.prompt
	e.hooks.Defer(func() {
		e.activateMarkers()
		if e.surface != nil {
			e.surface.SetEditorText(prompt)
			e.surface.Notify(handoffReadyNotice, ui.Info)
		}
	})
	return nil
}

// setTimestamp stamps the handoff boundary from the store's clock.
func (e *Engine) setTimestamp() {
	e.mu.Lock()
	e.handoffTimestamp = e.now()
	e.mu.Unlock()
}

// clearTimestamp reverts a stamp after a failed raw switch.
func (e *Engine) clearTimestamp() {
	e.mu.Lock()
	e.handoffTimestamp = 0
	e.mu.Unlock()
}

// stageMarkers holds a file-op expansion map until editor text lands.
func (e *Engine) stageMarkers(ops *FileOps) {
	e.mu.Lock()
	if ops == nil {
		e.staged = nil
	} else {
		e.staged = ops.Expansions
	}
	e.mu.Unlock()
}

// activateMarkers arms the staged expansions; the next input pass expands
// them. Arming replaces any previous store.
func (e *Engine) activateMarkers() {
	e.mu.Lock()
	e.markers = e.staged
	e.staged = nil
	e.mu.Unlock()
}
