package permission

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/logging"
)

// grant records what a session's user has approved with "always".
type grant struct {
	types    map[PermissionType]bool
	patterns map[string]bool
}

func newGrant() *grant {
	return &grant{
		types:    make(map[PermissionType]bool),
		patterns: make(map[string]bool),
	}
}

// covers reports whether this grant already answers the request: either the
// whole permission type was approved, or every requested pattern was.
func (g *grant) covers(req Request) bool {
	if g.types[req.Type] {
		return true
	}
	if len(req.Pattern) == 0 {
		return false
	}
	for _, p := range req.Pattern {
		if !g.patterns[p] {
			return false
		}
	}
	return true
}

// Checker answers permission requests: from configuration, from the
// session's standing grants, or by asking the user over the event bus and
// blocking until Respond delivers the answer.
type Checker struct {
	mu      sync.RWMutex
	grants  map[string]*grant        // sessionID -> standing approvals
	pending map[string]chan Response // requestID -> waiting Ask
}

// NewChecker creates a new permission checker.
func NewChecker() *Checker {
	return &Checker{
		grants:  make(map[string]*grant),
		pending: make(map[string]chan Response),
	}
}

// Check resolves a request under the configured action: allow passes, deny
// rejects, ask defers to the user.
func (c *Checker) Check(ctx context.Context, req Request, action PermissionAction) error {
	switch action {
	case ActionAllow:
		return nil
	case ActionDeny:
		return &RejectedError{
			SessionID: req.SessionID,
			Type:      req.Type,
			CallID:    req.CallID,
			Metadata:  req.Metadata,
			Message:   "Permission denied by configuration",
		}
	case ActionAsk:
		return c.Ask(ctx, req)
	}
	return nil
}

// Ask blocks until the user answers, unless a standing grant already covers
// the request. "always" answers become standing grants.
func (c *Checker) Ask(ctx context.Context, req Request) error {
	c.mu.RLock()
	g, ok := c.grants[req.SessionID]
	c.mu.RUnlock()
	if ok && g.covers(req) {
		return nil
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	respChan := make(chan Response, 1)
	c.mu.Lock()
	c.pending[req.ID] = respChan
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	logging.Debug().
		Str("request", req.ID).
		Str("type", string(req.Type)).
		Msg("asking for permission")

	event.Publish(event.Event{
		Type: event.PermissionRequired,
		Data: event.PermissionRequiredData{
			ID:             req.ID,
			SessionID:      req.SessionID,
			PermissionType: string(req.Type),
			Pattern:        req.Pattern,
			Title:          req.Title,
		},
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp := <-respChan:
		switch resp.Action {
		case "once":
			return nil
		case "always":
			c.approve(req.SessionID, req.Type, req.Pattern)
			return nil
		case "reject":
			return &RejectedError{
				SessionID: req.SessionID,
				Type:      req.Type,
				CallID:    req.CallID,
				Metadata:  req.Metadata,
				Message:   "Permission rejected by user",
			}
		}
	}
	return nil
}

// Respond delivers a user's answer to a waiting Ask.
func (c *Checker) Respond(requestID string, action string) {
	c.mu.RLock()
	ch, ok := c.pending[requestID]
	c.mu.RUnlock()
	if ok {
		ch <- Response{RequestID: requestID, Action: action}
	}

	event.Publish(event.Event{
		Type: event.PermissionResolved,
		Data: event.PermissionResolvedData{
			ID:      requestID,
			Granted: action != "reject",
		},
	})
}

// approve records an "always" answer as a standing grant.
func (c *Checker) approve(sessionID string, permType PermissionType, patterns []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.grants[sessionID]
	if !ok {
		g = newGrant()
		c.grants[sessionID] = g
	}
	g.types[permType] = true
	for _, p := range patterns {
		g.patterns[p] = true
	}
}

// IsApproved reports whether a permission type has a standing grant.
func (c *Checker) IsApproved(sessionID string, permType PermissionType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.grants[sessionID]
	return ok && g.types[permType]
}

// IsPatternApproved reports whether a pattern has a standing grant.
func (c *Checker) IsPatternApproved(sessionID string, pattern string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.grants[sessionID]
	return ok && g.patterns[pattern]
}

// ClearSession drops every standing grant for a session.
func (c *Checker) ClearSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grants, sessionID)
}

// ApprovePattern grants a single pattern without a user round-trip.
func (c *Checker) ApprovePattern(sessionID string, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.grants[sessionID]
	if !ok {
		g = newGrant()
		c.grants[sessionID] = g
	}
	g.patterns[pattern] = true
}
