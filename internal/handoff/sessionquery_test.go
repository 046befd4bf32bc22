package handoff

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relaycode/relay/internal/session"
	"github.com/relaycode/relay/pkg/types"
)

func writeTranscript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ses_query.jsonl")
	j, err := session.CreateJournal(path, types.SessionHeader{})
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	j.Append(&session.Entry{Type: session.EntryTypeMessage, Message: &types.MessageWithParts{
		Info:  &types.Message{Role: "user"},
		Parts: []types.Part{&types.TextPart{Type: "text", Text: "How do I rotate the API keys?"}},
	}})
	j.Append(&session.Entry{Type: session.EntryTypeMessage, Message: &types.MessageWithParts{
		Info:  &types.Message{Role: "assistant"},
		Parts: []types.Part{&types.TextPart{Type: "text", Text: "Use the rotate-keys script under ops/."}},
	}})
	return path
}

func TestLoadTranscript(t *testing.T) {
	path := writeTranscript(t)

	transcript, err := LoadTranscript(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(transcript, "USER:") || !strings.Contains(transcript, "rotate the API keys") {
		t.Errorf("transcript missing user turn: %q", transcript)
	}
	if !strings.Contains(transcript, "ASSISTANT:") || !strings.Contains(transcript, "rotate-keys script") {
		t.Errorf("transcript missing assistant turn: %q", transcript)
	}
}

func TestLoadTranscriptMissingFile(t *testing.T) {
	_, err := LoadTranscript(filepath.Join(t.TempDir(), "gone.jsonl"))
	if err == nil {
		t.Fatal("expected an error for a missing session file")
	}
}

func TestSessionQueryToolAnswers(t *testing.T) {
	path := writeTranscript(t)
	models := &fakeModels{}
	tool := NewSessionQueryTool(models)

	input := `{"sessionFile":` + jsonString(path) + `,"question":"What did we decide?"}`
	result, err := tool.Execute(context.Background(), []byte(input), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Output == "" {
		t.Error("expected an answer")
	}
	if models.calls != 1 {
		t.Errorf("expected one completion, got %d", models.calls)
	}
}

func TestSessionQueryToolRequiresArguments(t *testing.T) {
	tool := NewSessionQueryTool(&fakeModels{})
	if _, err := tool.Execute(context.Background(), []byte(`{"sessionFile":"","question":""}`), nil); err == nil {
		t.Fatal("expected an argument error")
	}
}

func jsonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
