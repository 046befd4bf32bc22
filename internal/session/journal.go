package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/relaycode/relay/internal/idgen"
	"github.com/relaycode/relay/pkg/types"
)

// EntryType identifies a journal entry.
type EntryType string

const (
	// EntryTypeMessage holds one conversation message with its parts.
	EntryTypeMessage EntryType = "message"
	// EntryTypeCompaction marks the point where earlier entries were
	// summarized away. Everything before it on the branch is represented
	// by the recorded summary.
	EntryTypeCompaction EntryType = "compaction"
)

// Entry is one line of a session journal. Entries form a tree via ParentID;
// the branch is the path from the root to the current leaf.
type Entry struct {
	Type       EntryType               `json:"type"`
	ID         string                  `json:"id"`
	ParentID   string                  `json:"parentID,omitempty"`
	Message    *types.MessageWithParts `json:"message,omitempty"`
	Compaction *CompactionRecord       `json:"compaction,omitempty"`
}

// CompactionRecord carries the summary a compaction produced.
type CompactionRecord struct {
	Summary string `json:"summary"`
	Tokens  int    `json:"tokens,omitempty"`
}

// BranchView is the compaction-aware projection of a branch: the summary a
// previous compaction left behind, if any, and the message entries that
// survive it.
type BranchView struct {
	Summary  string
	Messages []types.MessageWithParts
}

// Journal is one append-only session file. The first line is the header;
// every following line is an Entry. Files are never mutated except by
// append.
type Journal struct {
	path    string
	f       *os.File
	header  types.SessionHeader
	entries map[string]*Entry
	order   []*Entry
	leafID  string
}

// CreateJournal creates a new session file at path and writes its header
// line. Fails if the file already exists.
func CreateJournal(path string, header types.SessionHeader) (*Journal, error) {
	if header.Type == "" {
		header.Type = "session"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create session file: %w", err)
	}

	line, err := json.Marshal(header)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write session header: %w", err)
	}

	return &Journal{
		path:    path,
		f:       f,
		header:  header,
		entries: make(map[string]*Entry),
	}, nil
}

// OpenJournal loads an existing session file for reading and appending.
func OpenJournal(path string) (*Journal, error) {
	j, err := ReadJournal(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open session file for append: %w", err)
	}
	j.f = f
	return j, nil
}

// ReadJournal parses a session file without taking an append handle. The
// returned journal is read-only; Append fails. This is what cross-session
// consumers (the session-query tool) use, so querying a foreign session
// never holds its file open for writing.
func ReadJournal(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	j := &Journal{
		path:    path,
		entries: make(map[string]*Entry),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			if err := json.Unmarshal(line, &j.header); err != nil {
				return nil, fmt.Errorf("malformed session header: %w", err)
			}
			if j.header.Type != "session" {
				return nil, fmt.Errorf("not a session file: %s", path)
			}
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("malformed journal entry: %w", err)
		}
		j.entries[e.ID] = &e
		j.order = append(j.order, &e)
		j.leafID = e.ID
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if first {
		return nil, fmt.Errorf("empty session file: %s", path)
	}

	return j, nil
}

// ReadHeader reads only the first newline-terminated line of a session file
// and parses it. It never reads past the header, so walking a parent chain
// costs O(depth) in bytes regardless of how large the sessions grew.
func ReadHeader(path string) (*types.SessionHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	line, err := r.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return nil, err
	}

	var header types.SessionHeader
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("malformed session header: %w", err)
	}
	return &header, nil
}

// Path returns the journal's file path.
func (j *Journal) Path() string {
	return j.path
}

// Header returns the parsed header line.
func (j *Journal) Header() types.SessionHeader {
	return j.header
}

// LeafID returns the ID of the current leaf entry, or "" for an empty
// journal.
func (j *Journal) LeafID() string {
	return j.leafID
}

// SetLeaf moves the current leaf to an existing entry, re-rooting the
// branch there. Appends after SetLeaf grow a new branch.
func (j *Journal) SetLeaf(id string) error {
	if _, ok := j.entries[id]; !ok {
		return fmt.Errorf("unknown entry: %s", id)
	}
	j.leafID = id
	return nil
}

// Append writes an entry to the journal, parenting it to the current leaf.
// The entry's ID is assigned if empty.
func (j *Journal) Append(e *Entry) error {
	if j.f == nil {
		return fmt.Errorf("journal is read-only: %s", j.path)
	}
	if e.ID == "" {
		e.ID = idgen.New()
	}
	if e.ParentID == "" {
		e.ParentID = j.leafID
	}

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := j.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	j.entries[e.ID] = e
	j.order = append(j.order, e)
	j.leafID = e.ID
	return nil
}

// Branch returns the entries on the path from the root to the current leaf,
// in order.
func (j *Journal) Branch() []*Entry {
	var chain []*Entry
	for id := j.leafID; id != ""; {
		e, ok := j.entries[id]
		if !ok {
			break
		}
		chain = append(chain, e)
		id = e.ParentID
	}
	// Reverse into root-first order.
	for i, k := 0, len(chain)-1; i < k; i, k = i+1, k-1 {
		chain[i], chain[k] = chain[k], chain[i]
	}
	return chain
}

// View returns the compaction-aware projection of the current branch:
// message entries after the last compaction point, plus that compaction's
// summary. Messages already summarized away never reappear here.
func (j *Journal) View() *BranchView {
	view := &BranchView{}
	for _, e := range j.Branch() {
		switch e.Type {
		case EntryTypeCompaction:
			view.Summary = e.Compaction.Summary
			view.Messages = view.Messages[:0]
		case EntryTypeMessage:
			if e.Message != nil {
				view.Messages = append(view.Messages, *e.Message)
			}
		}
	}
	return view
}

// Close releases the append handle. The file remains valid.
func (j *Journal) Close() error {
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}
