package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relaycode/relay/pkg/types"
)

func TestJournalHeaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "child.jsonl")

	j, err := CreateJournal(path, types.SessionHeader{ParentSession: "/S/parent.jsonl"})
	if err != nil {
		t.Fatal(err)
	}
	j.Close()

	header, err := ReadHeader(path)
	if err != nil {
		t.Fatal(err)
	}
	if header.Type != "session" {
		t.Errorf("expected type session, got %q", header.Type)
	}
	if header.ParentSession != "/S/parent.jsonl" {
		t.Errorf("expected parent /S/parent.jsonl, got %q", header.ParentSession)
	}
}

func TestReadHeaderOnlyTouchesFirstLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.jsonl")

	content := `{"type":"session","parentSession":"/S/p.jsonl"}` + "\n" +
		`this line is not JSON and must never be parsed` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	header, err := ReadHeader(path)
	if err != nil {
		t.Fatal(err)
	}
	if header.ParentSession != "/S/p.jsonl" {
		t.Errorf("got %q", header.ParentSession)
	}
}

func TestJournalAppendAndBranch(t *testing.T) {
	dir := t.TempDir()
	j, err := CreateJournal(filepath.Join(dir, "a.jsonl"), types.SessionHeader{})
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	for _, text := range []string{"one", "two", "three"} {
		err := j.Append(&Entry{
			Type: EntryTypeMessage,
			Message: &types.MessageWithParts{
				Info:  &types.Message{Role: "user"},
				Parts: []types.Part{&types.TextPart{Type: "text", Text: text}},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	branch := j.Branch()
	if len(branch) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(branch))
	}
	for i, want := range []string{"one", "two", "three"} {
		got := branch[i].Message.Parts[0].(*types.TextPart).Text
		if got != want {
			t.Errorf("entry %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestJournalReloadPreservesBranch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jsonl")

	j, err := CreateJournal(path, types.SessionHeader{})
	if err != nil {
		t.Fatal(err)
	}
	j.Append(&Entry{Type: EntryTypeMessage, Message: &types.MessageWithParts{Info: &types.Message{ID: "m1", Role: "user"}}})
	j.Append(&Entry{Type: EntryTypeMessage, Message: &types.MessageWithParts{Info: &types.Message{ID: "m2", Role: "assistant"}}})
	j.Close()

	reopened, err := OpenJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	branch := reopened.Branch()
	if len(branch) != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", len(branch))
	}
	if branch[1].Message.Info.ID != "m2" {
		t.Errorf("leaf should be m2, got %s", branch[1].Message.Info.ID)
	}
}

func TestJournalViewExcludesCompactedMessages(t *testing.T) {
	dir := t.TempDir()
	j, err := CreateJournal(filepath.Join(dir, "a.jsonl"), types.SessionHeader{})
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	j.Append(&Entry{Type: EntryTypeMessage, Message: &types.MessageWithParts{Info: &types.Message{ID: "old1", Role: "user"}}})
	j.Append(&Entry{Type: EntryTypeMessage, Message: &types.MessageWithParts{Info: &types.Message{ID: "old2", Role: "assistant"}}})
	j.Append(&Entry{Type: EntryTypeCompaction, Compaction: &CompactionRecord{Summary: "did things"}})
	j.Append(&Entry{Type: EntryTypeMessage, Message: &types.MessageWithParts{Info: &types.Message{ID: "new1", Role: "user"}}})

	view := j.View()
	if view.Summary != "did things" {
		t.Errorf("expected summary, got %q", view.Summary)
	}
	if len(view.Messages) != 1 || view.Messages[0].Info.ID != "new1" {
		t.Fatalf("expected only post-compaction message, got %+v", view.Messages)
	}
}

func TestJournalSetLeafForks(t *testing.T) {
	dir := t.TempDir()
	j, err := CreateJournal(filepath.Join(dir, "a.jsonl"), types.SessionHeader{})
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	j.Append(&Entry{ID: "e1", Type: EntryTypeMessage, Message: &types.MessageWithParts{Info: &types.Message{ID: "m1"}}})
	j.Append(&Entry{ID: "e2", Type: EntryTypeMessage, Message: &types.MessageWithParts{Info: &types.Message{ID: "m2"}}})

	if err := j.SetLeaf("e1"); err != nil {
		t.Fatal(err)
	}
	j.Append(&Entry{ID: "e3", Type: EntryTypeMessage, Message: &types.MessageWithParts{Info: &types.Message{ID: "m3"}}})

	branch := j.Branch()
	if len(branch) != 2 {
		t.Fatalf("expected forked branch of 2, got %d", len(branch))
	}
	if branch[0].ID != "e1" || branch[1].ID != "e3" {
		t.Errorf("expected e1,e3 got %s,%s", branch[0].ID, branch[1].ID)
	}
}

func TestManagerNewSessionWritesParentHeader(t *testing.T) {
	m := NewManager(t.TempDir())

	parent, err := m.NewSession(NewSessionOptions{})
	if err != nil {
		t.Fatal(err)
	}

	child, err := m.NewSession(NewSessionOptions{ParentSession: parent, Slug: "implement-oauth"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(filepath.Base(child), "implement-oauth") {
		t.Errorf("slug missing from file name: %s", child)
	}

	header, err := ReadHeader(child)
	if err != nil {
		t.Fatal(err)
	}
	if header.ParentSession != parent {
		t.Errorf("expected parent %s, got %s", parent, header.ParentSession)
	}
	if m.SessionFile() != child {
		t.Errorf("manager should point at the new file")
	}
}

func TestManagerAppendMessageStampsClock(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.NewSession(NewSessionOptions{}); err != nil {
		t.Fatal(err)
	}

	msg := &types.Message{ID: "m1", Role: "user"}
	if err := m.AppendMessage(msg, nil); err != nil {
		t.Fatal(err)
	}
	if msg.Time.Created == 0 {
		t.Error("expected creation timestamp to be stamped")
	}

	msgs := m.Messages()
	if len(msgs) != 1 || msgs[0].Info.ID != "m1" {
		t.Fatalf("expected the appended message back, got %+v", msgs)
	}
}
