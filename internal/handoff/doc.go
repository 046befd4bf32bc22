// Package handoff transfers a conversation into a new, focused session with
// a compact, goal-directed summary in place of the original transcript.
//
// Three entry points converge on the same outcome: the /handoff slash
// command, the agent-invocable handoff tool, and the hook that intercepts
// in-place compaction when context pressure crosses the threshold. All
// three end with a new session file parented to the old one and the editor
// pre-filled with the generated prompt, one keystroke away from submitting.
//
// The Engine owns all mutable handoff state: the pending deferred switch,
// the handoff timestamp that filters stale messages out of the next model
// call, the pending editor text keyed by parent session, and the collapsed
// file markers awaiting expansion. Everything runs on the hook bus's single
// dispatch goroutine; there is no locking discipline beyond the Engine's
// own mutex because there are no parallel mutators.
package handoff
