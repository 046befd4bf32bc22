// Package ui defines the surface the host renders through. The core never
// draws anything itself; it sets editor text, raises notifications, and runs
// modal prompts through this interface.
package ui

import (
	"context"
	"errors"
)

// Severity grades a notification.
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

// ErrDismissed is returned when the user dismisses a modal without choosing.
var ErrDismissed = errors.New("dismissed")

// ErrCancelled is returned when the user cancels an operation in flight.
var ErrCancelled = errors.New("cancelled")

// Surface is the UI contract. Implementations must be safe to call from the
// event dispatch goroutine.
type Surface interface {
	// SetEditorText pre-fills the editor. The text is submitted only when
	// the user presses enter.
	SetEditorText(text string)

	// Notify shows a transient notification.
	Notify(text string, severity Severity)

	// Select presents a modal choice and returns the chosen option.
	// Dismissal returns ErrDismissed.
	Select(ctx context.Context, title string, options []string) (string, error)

	// WithLoader runs fn under a cancellable loader. The context passed to
	// fn is cancelled when the user dismisses the loader; in that case
	// WithLoader returns ErrCancelled regardless of fn's result.
	WithLoader(ctx context.Context, title string, fn func(ctx context.Context) error) error
}
