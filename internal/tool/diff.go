package tool

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// buildDiffMetadata computes the diff a mutating file tool attaches to its
// result: patch text plus added/deleted line counts. The session layer
// turns this into per-file diff records on the session summary.
func buildDiffMetadata(path, before, after, baseDir string) (string, int, int) {
	if before == after {
		return "", 0, 0
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	additions, deletions := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += diffLineCount(d.Text)
		case diffmatchpatch.DiffDelete:
			deletions += diffLineCount(d.Text)
		}
	}

	patchText := dmp.PatchToText(dmp.PatchMake(before, diffs))
	if patchText == "" {
		return "", additions, deletions
	}

	var b2 strings.Builder
	if rel := relativePath(path, baseDir); rel != "" {
		fmt.Fprintf(&b2, "--- %s\n+++ %s\n", rel, rel)
	}
	b2.WriteString(patchText)
	return b2.String(), additions, deletions
}

// relativePath prefers a baseDir-relative path for display; absolute when
// the file lies elsewhere.
func relativePath(path, baseDir string) string {
	if path == "" || baseDir == "" {
		return path
	}
	if rel, err := filepath.Rel(baseDir, path); err == nil {
		return rel
	}
	return path
}

// diffLineCount counts lines in a diff fragment; an unterminated final
// line still counts.
func diffLineCount(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
