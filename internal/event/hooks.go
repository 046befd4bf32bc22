package event

import (
	"sync"

	"github.com/relaycode/relay/pkg/types"
)

// HookType identifies a lifecycle hook. Unlike the pub/sub bus, hooks are
// dispatched synchronously and a handler's return value is folded into the
// running state of the event, so a later handler observes what an earlier
// one changed.
type HookType string

const (
	BeforeAgentStart     HookType = "before_agent_start"
	SessionSwitch        HookType = "session_switch"
	ContextBuild         HookType = "context"
	Input                HookType = "input"
	AgentEnd             HookType = "agent_end"
	SessionBeforeCompact HookType = "session_before_compact"
)

// SwitchReason says how the active session changed.
type SwitchReason string

const (
	SwitchNew    SwitchReason = "new"
	SwitchResume SwitchReason = "resume"
)

// BeforeAgentStartPayload carries the outgoing system prompt. Handlers may
// replace it.
type BeforeAgentStartPayload struct {
	SystemPrompt string
}

// SessionSwitchPayload announces that the session store points at a new
// file. Header is the new file's first line, already parsed.
type SessionSwitchPayload struct {
	Reason      SwitchReason
	SessionFile string
	Header      *types.SessionHeader
}

// ContextPayload carries the messages the host is about to submit to the
// model. Handlers may replace the list.
type ContextPayload struct {
	Messages []types.MessageWithParts
}

// InputPayload carries user-submitted editor text before it becomes a
// message.
type InputPayload struct {
	Text   string
	Images []types.FilePart
	Source string
}

// AgentEndPayload fires after the agent loop finishes a turn.
type AgentEndPayload struct {
	SessionFile string
}

// CompactPreparation is the subset of the conversation the host has already
// staged for in-place summarization, plus whatever summary a previous
// compaction produced.
type CompactPreparation struct {
	PreviousSummary     string
	MessagesToSummarize []types.MessageWithParts
	// ContextPct is the fraction of the context window in use, 0-100.
	// Zero means unknown.
	ContextPct int
}

// BeforeCompactPayload fires when context pressure is about to trigger
// in-place compaction. A handler returning Cancel stops the compaction.
type BeforeCompactPayload struct {
	SessionFile string
	Preparation *CompactPreparation
}

// HookEvent is a typed hook dispatch. Data holds one of the *Payload types
// above, matched to Type.
type HookEvent struct {
	Type HookType
	Data any
}

// HookResult is a handler's modifier. Nil fields leave the running state
// alone; Cancel is sticky once any handler sets it.
type HookResult struct {
	SystemPrompt *string
	Messages     *[]types.MessageWithParts
	Text         *string
	Images       []types.FilePart
	Transformed  bool
	Cancel       bool
}

// HookHandler observes the event's running state and may return a modifier.
type HookHandler func(e *HookEvent) *HookResult

type hookEntry struct {
	id uint64
	fn HookHandler
}

// HookBus dispatches lifecycle hooks synchronously, in registration order,
// on the caller's goroutine. It is the host's single dispatch thread made
// explicit: all mutating handoff paths run through here, so they cannot
// overlap.
type HookBus struct {
	mu       sync.Mutex
	handlers map[HookType][]hookEntry
	nextID   uint64

	// deferred funcs run after the current dispatch finishes, so a handler
	// can schedule work that must observe the host's own cleanup.
	deferred []func()
	running  bool
}

// NewHookBus creates an empty hook bus.
func NewHookBus() *HookBus {
	return &HookBus{handlers: make(map[HookType][]hookEntry)}
}

// On registers a handler for a hook type. Returns an unregister function.
func (hb *HookBus) On(t HookType, fn HookHandler) func() {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	hb.nextID++
	id := hb.nextID
	hb.handlers[t] = append(hb.handlers[t], hookEntry{id: id, fn: fn})

	return func() {
		hb.mu.Lock()
		defer hb.mu.Unlock()
		entries := hb.handlers[t]
		for i, e := range entries {
			if e.id == id {
				hb.handlers[t] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

// Defer schedules fn to run once the current Run dispatch (including every
// remaining handler) has returned. Outside a dispatch, fn runs immediately.
func (hb *HookBus) Defer(fn func()) {
	hb.mu.Lock()
	if hb.running {
		hb.deferred = append(hb.deferred, fn)
		hb.mu.Unlock()
		return
	}
	hb.mu.Unlock()
	fn()
}

// Run dispatches the event to every handler in registration order, folding
// each handler's modifier into both the payload and the composed result.
func (hb *HookBus) Run(e *HookEvent) *HookResult {
	hb.mu.Lock()
	entries := make([]hookEntry, len(hb.handlers[e.Type]))
	copy(entries, hb.handlers[e.Type])
	hb.running = true
	hb.mu.Unlock()

	composed := &HookResult{}
	for _, entry := range entries {
		r := entry.fn(e)
		if r == nil {
			continue
		}
		hb.fold(e, composed, r)
	}

	hb.mu.Lock()
	hb.running = false
	deferred := hb.deferred
	hb.deferred = nil
	hb.mu.Unlock()

	for _, fn := range deferred {
		fn()
	}

	return composed
}

// fold applies one handler's modifier to the running payload so later
// handlers see the change.
func (hb *HookBus) fold(e *HookEvent, composed, r *HookResult) {
	if r.SystemPrompt != nil {
		composed.SystemPrompt = r.SystemPrompt
		if p, ok := e.Data.(*BeforeAgentStartPayload); ok {
			p.SystemPrompt = *r.SystemPrompt
		}
	}
	if r.Messages != nil {
		composed.Messages = r.Messages
		if p, ok := e.Data.(*ContextPayload); ok {
			p.Messages = *r.Messages
		}
	}
	if r.Text != nil {
		composed.Text = r.Text
		composed.Transformed = composed.Transformed || r.Transformed
		if p, ok := e.Data.(*InputPayload); ok {
			p.Text = *r.Text
		}
	}
	if r.Images != nil {
		composed.Images = r.Images
		if p, ok := e.Data.(*InputPayload); ok {
			p.Images = r.Images
		}
	}
	if r.Cancel {
		composed.Cancel = true
	}
}
