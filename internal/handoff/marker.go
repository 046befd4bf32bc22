package handoff

import (
	"strings"

	"github.com/relaycode/relay/internal/event"
)

// onInput rewrites collapsed markers in submitted editor text to their full
// XML-tagged form. Markers are single-use: the store clears after one
// expansion pass, so later turns never silently rewrite the same strings.
func (e *Engine) onInput(ev *event.HookEvent) *event.HookResult {
	p, ok := ev.Data.(*event.InputPayload)
	if !ok {
		return nil
	}

	e.mu.Lock()
	markers := e.markers
	e.mu.Unlock()
	if len(markers) == 0 {
		return nil
	}

	found := false
	for marker := range markers {
		if strings.Contains(p.Text, marker) {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	expanded := p.Text
	for marker, expansion := range markers {
		expanded = strings.ReplaceAll(expanded, marker, expansion)
	}

	e.mu.Lock()
	e.markers = nil
	e.mu.Unlock()

	return &event.HookResult{Text: &expanded, Images: p.Images, Transformed: true}
}
