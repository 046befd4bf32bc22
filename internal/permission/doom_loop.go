package permission

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// DoomLoopThreshold is the number of identical calls before triggering.
const DoomLoopThreshold = 3

// runState tracks the current streak of identical calls in one session.
type runState struct {
	lastHash string
	run      int
}

// DoomLoopDetector flags an agent stuck repeating the same tool call with
// the same input. Only an unbroken streak counts; any different call
// resets it.
type DoomLoopDetector struct {
	mu       sync.Mutex
	sessions map[string]*runState
}

// NewDoomLoopDetector creates a new doom loop detector.
func NewDoomLoopDetector() *DoomLoopDetector {
	return &DoomLoopDetector{sessions: make(map[string]*runState)}
}

// Check records one call and reports whether the streak has reached the
// threshold.
func (d *DoomLoopDetector) Check(sessionID, toolName string, input any) bool {
	hash := hashCall(toolName, input)

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[sessionID]
	if !ok {
		s = &runState{}
		d.sessions[sessionID] = s
	}

	if s.lastHash == hash {
		s.run++
	} else {
		s.lastHash = hash
		s.run = 1
	}
	return s.run >= DoomLoopThreshold
}

// hashCall fingerprints a call by tool name and marshaled input.
func hashCall(toolName string, input any) string {
	data, _ := json.Marshal(map[string]any{
		"tool":  toolName,
		"input": input,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Clear forgets a session's streak.
func (d *DoomLoopDetector) Clear(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, sessionID)
}

// Reset restarts a session's streak after an interruption breaks the loop.
func (d *DoomLoopDetector) Reset(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[sessionID]; ok {
		s.lastHash = ""
		s.run = 0
	}
}
