package handoff

import (
	"strings"
	"testing"
)

func TestAssemblePromptWithParent(t *testing.T) {
	dir := t.TempDir()
	root := writeSession(t, dir, "root.jsonl", "")
	parent := writeSession(t, dir, "parent.jsonl", root)

	prompt := AssemblePrompt("## Goal\nShip it", nil, parent)

	if !strings.HasPrefix(prompt, skillDirective) {
		t.Errorf("prompt must begin with the skill directive: %q", prompt)
	}
	if !strings.Contains(prompt, parentMarker+" `"+parent+"`") {
		t.Errorf("prompt missing parent marker: %q", prompt)
	}
	if !strings.Contains(prompt, ancestorHeading) || !strings.Contains(prompt, "- `"+root+"`") {
		t.Errorf("prompt missing ancestor block: %q", prompt)
	}
	if !strings.Contains(prompt, "## Goal\nShip it") {
		t.Errorf("prompt missing summary body: %q", prompt)
	}
}

func TestAssemblePromptSingleAncestor(t *testing.T) {
	parent := writeSession(t, t.TempDir(), "only.jsonl", "")

	prompt := AssemblePrompt("body", nil, parent)
	if strings.Contains(prompt, ancestorHeading) {
		t.Errorf("single-ancestor prompt must omit the ancestor block: %q", prompt)
	}
}

func TestAssemblePromptNoParent(t *testing.T) {
	prompt := AssemblePrompt("## Goal\nShip it", nil, "")

	if strings.Contains(prompt, skillDirective) {
		t.Errorf("parentless prompt must omit the skill directive: %q", prompt)
	}
	if strings.Contains(prompt, parentMarker) {
		t.Errorf("parentless prompt must omit the parent marker: %q", prompt)
	}
	if prompt != "## Goal\nShip it" {
		t.Errorf("parentless prompt should be the body unchanged: %q", prompt)
	}
}

func TestAssemblePromptAppendsMarkers(t *testing.T) {
	ops := &FileOps{
		MarkersText: "[+1 read filename]\n[+1 modified filename]",
		Expansions:  map[string]string{},
	}
	prompt := AssemblePrompt("summary", ops, "")
	if !strings.HasSuffix(prompt, "summary\n\n[+1 read filename]\n[+1 modified filename]") {
		t.Errorf("markers should trail the body after a blank line: %q", prompt)
	}
}
