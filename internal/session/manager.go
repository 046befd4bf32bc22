package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/relaycode/relay/internal/idgen"
	"github.com/relaycode/relay/internal/logging"
	"github.com/relaycode/relay/pkg/types"
)

// NewSessionOptions configures a new session file.
type NewSessionOptions struct {
	// ParentSession records the file this session was handed off from.
	// Written into the header; never read again by the store itself.
	ParentSession string
	// Slug is appended to the generated file name when non-empty.
	Slug string
}

// Manager owns the active session journal. It is the single writer; every
// other component reads through the branch projections it exposes.
//
// NewSession here is the raw switch: it repoints the store at a fresh file
// and nothing else. The full new-session fan-out (session_switch dispatch,
// editor install) belongs to the command context.
type Manager struct {
	mu  sync.Mutex
	dir string
	cur *Journal
}

// NewManager creates a manager storing session files under dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// SessionFile returns the active session's file path, or "" when no session
// is open.
func (m *Manager) SessionFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.Path()
}

// Header returns the active session's parsed header, or nil.
func (m *Manager) Header() *types.SessionHeader {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil
	}
	h := m.cur.Header()
	return &h
}

// LeafID returns the active session's current leaf entry ID.
func (m *Manager) LeafID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.LeafID()
}

// Branch returns the active session's branch entries, root first. Empty
// when no session is open.
func (m *Manager) Branch() []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil
	}
	return m.cur.Branch()
}

// View returns the compaction-aware projection of the active branch.
func (m *Manager) View() *BranchView {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return &BranchView{}
	}
	return m.cur.View()
}

// Messages returns the message entries of the compaction-aware projection.
func (m *Manager) Messages() []types.MessageWithParts {
	return m.View().Messages
}

// AppendMessage records a message and its parts on the active branch. The
// creation timestamp is stamped from the store's clock when unset.
func (m *Manager) AppendMessage(msg *types.Message, parts []types.Part) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return fmt.Errorf("no active session")
	}
	if msg.Time.Created == 0 {
		msg.Time.Created = idgen.Timestamp()
	}
	return m.cur.Append(&Entry{
		Type:    EntryTypeMessage,
		Message: &types.MessageWithParts{Info: msg, Parts: parts},
	})
}

// AppendCompaction records an in-place compaction point on the active
// branch. Messages before it drop out of View.
func (m *Manager) AppendCompaction(summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return fmt.Errorf("no active session")
	}
	return m.cur.Append(&Entry{
		Type:       EntryTypeCompaction,
		Compaction: &CompactionRecord{Summary: summary},
	})
}

// NewSession creates a fresh session file and makes it current. This is the
// raw switch: no events fire here.
func (m *Manager) NewSession(opts NewSessionOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := "ses_" + strings.ToLower(idgen.New())
	if opts.Slug != "" {
		name += "-" + opts.Slug
	}
	path := filepath.Join(m.dir, name+".jsonl")

	j, err := CreateJournal(path, types.SessionHeader{
		Type:          "session",
		ParentSession: opts.ParentSession,
	})
	if err != nil {
		return "", err
	}

	if m.cur != nil {
		if cerr := m.cur.Close(); cerr != nil {
			logging.Warn().Err(cerr).Str("file", m.cur.Path()).Msg("failed to close previous session")
		}
	}
	m.cur = j

	logging.Debug().Str("file", path).Str("parent", opts.ParentSession).Msg("session created")
	return path, nil
}

// Open makes an existing session file current.
func (m *Manager) Open(path string) error {
	j, err := OpenJournal(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		if cerr := m.cur.Close(); cerr != nil {
			logging.Warn().Err(cerr).Str("file", m.cur.Path()).Msg("failed to close previous session")
		}
	}
	m.cur = j
	return nil
}

// Close releases the active journal, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil
	}
	err := m.cur.Close()
	m.cur = nil
	return err
}
