package command

import (
	"context"

	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/logging"
	"github.com/relaycode/relay/internal/session"
	"github.com/relaycode/relay/internal/ui"
)

// Context is the privileged surface a slash command runs with. Unlike the
// raw store API, its NewSession performs the full new-session fan-out: the
// switch happens, then session_switch dispatches with reason "new", and
// only then does the call return.
type Context struct {
	WorkDir  string
	Sessions *session.Manager
	Hooks    *event.HookBus
	UI       ui.Surface

	// Confirm, when set, gates session creation behind a user prompt.
	// Declining cancels the creation.
	Confirm func(title string) bool
}

// NewSession creates a session through the store and fires the switch
// fan-out before returning. Returns ui.ErrCancelled when the user declines
// the confirmation.
func (c *Context) NewSession(opts session.NewSessionOptions) (string, error) {
	if c.Confirm != nil && !c.Confirm("Start a new session?") {
		return "", ui.ErrCancelled
	}

	path, err := c.Sessions.NewSession(opts)
	if err != nil {
		return "", err
	}

	if c.Hooks != nil {
		c.Hooks.Run(&event.HookEvent{Type: event.SessionSwitch, Data: &event.SessionSwitchPayload{
			Reason:      event.SwitchNew,
			SessionFile: path,
			Header:      c.Sessions.Header(),
		}})
	}

	logging.Debug().Str("file", path).Msg("privileged session switch")
	return path, nil
}

// Handler is a built-in command implemented in Go rather than as a prompt
// template.
type Handler func(ctx context.Context, cctx *Context, args string)

// RegisterHandler installs a built-in Go command under name.
func (e *Executor) RegisterHandler(name string, h Handler) {
	if e.handlers == nil {
		e.handlers = make(map[string]Handler)
	}
	e.handlers[name] = h
}

// Dispatch runs a built-in handler by name. Reports whether one existed.
func (e *Executor) Dispatch(ctx context.Context, cctx *Context, name, args string) bool {
	h, ok := e.handlers[name]
	if !ok {
		return false
	}
	h(ctx, cctx, args)
	return true
}
