package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	einotool "github.com/cloudwego/eino/components/tool"
)

const editDescription = `Performs exact string replacements in files.

Usage:
- The file_path parameter must be an absolute path
- The old_string must exist in the file (exact match required)
- The new_string will replace old_string
- Use replace_all to replace all occurrences
- The edit will FAIL if old_string is not unique (unless using replace_all)`

// fuzzyMatchThreshold is the minimum similarity for a fuzzy replacement.
const fuzzyMatchThreshold = 0.7

// EditTool implements file editing.
type EditTool struct {
	workDir string
}

// EditInput represents the input for the edit tool.
type EditInput struct {
	FilePath   string `json:"filePath"`
	OldString  string `json:"oldString"`
	NewString  string `json:"newString"`
	ReplaceAll bool   `json:"replaceAll,omitempty"`
}

// NewEditTool creates a new edit tool.
func NewEditTool(workDir string) *EditTool {
	return &EditTool{workDir: workDir}
}

func (t *EditTool) ID() string          { return "edit" }
func (t *EditTool) Description() string { return editDescription }

func (t *EditTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {
				"type": "string",
				"description": "The absolute path to the file to edit"
			},
			"oldString": {
				"type": "string",
				"description": "The exact text to replace"
			},
			"newString": {
				"type": "string",
				"description": "The text to replace it with"
			},
			"replaceAll": {
				"type": "boolean",
				"description": "Replace all occurrences (default: false)"
			}
		},
		"required": ["filePath", "oldString", "newString"]
	}`)
}

// replacement is the outcome of one matching strategy.
type replacement struct {
	text  string // full new file content
	count int
	note  string // qualifier for the result title/output
}

func (t *EditTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params EditInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.OldString == params.NewString {
		return nil, fmt.Errorf("old_string and new_string must be different")
	}

	content, err := os.ReadFile(params.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	text := string(content)

	// Strategies in order: exact, line-ending-normalized, fuzzy. The
	// first one that matches wins.
	rep, err := t.exactReplace(text, params)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		rep = t.normalizedReplace(text, params)
	}
	if rep == nil {
		rep = t.fuzzyReplace(text, params)
	}
	if rep == nil {
		return nil, fmt.Errorf("old_string not found in file. The content may have changed or the string doesn't exist")
	}

	if err := os.WriteFile(params.FilePath, []byte(rep.text), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	publishFileEdited(toolCtx, params.FilePath)

	title := fmt.Sprintf("Edited %s", filepath.Base(params.FilePath))
	output := fmt.Sprintf("Replaced %d occurrence(s)", rep.count)
	if rep.note != "" {
		title += " (" + rep.note + ")"
		output += " (" + rep.note + ")"
	}

	diffText, additions, deletions := buildDiffMetadata(params.FilePath, text, rep.text, t.workDir)

	return &Result{
		Title:  title,
		Output: output,
		Metadata: map[string]any{
			"file":         params.FilePath,
			"replacements": rep.count,
			"before":       text,
			"after":        rep.text,
			"diff":         diffText,
			"additions":    additions,
			"deletions":    deletions,
		},
	}, nil
}

// exactReplace handles verbatim matches. A non-unique match without
// replaceAll is an error, not a fallthrough.
func (t *EditTool) exactReplace(text string, params EditInput) (*replacement, error) {
	count := strings.Count(text, params.OldString)
	if count == 0 {
		return nil, nil
	}
	if params.ReplaceAll {
		return &replacement{
			text:  strings.ReplaceAll(text, params.OldString, params.NewString),
			count: count,
		}, nil
	}
	if count > 1 {
		return nil, fmt.Errorf("old_string appears %d times in file. Use replace_all or provide more context", count)
	}
	return &replacement{
		text:  strings.Replace(text, params.OldString, params.NewString, 1),
		count: 1,
	}, nil
}

// normalizedReplace retries with CRLF collapsed to LF on both sides.
func (t *EditTool) normalizedReplace(text string, params EditInput) *replacement {
	normOld := normalizeLineEndings(params.OldString)
	normText := normalizeLineEndings(text)
	if !strings.Contains(normText, normOld) {
		return nil
	}
	return &replacement{
		text:  strings.Replace(normText, normOld, params.NewString, 1),
		count: 1,
		note:  "normalized line endings",
	}
}

// fuzzyReplace replaces the most similar block when similarity clears the
// threshold.
func (t *EditTool) fuzzyReplace(text string, params EditInput) *replacement {
	match, sim := findBestMatch(text, params.OldString)
	if match == "" || sim < fuzzyMatchThreshold {
		return nil
	}
	return &replacement{
		text:  strings.Replace(text, match, params.NewString, 1),
		count: 1,
		note:  fmt.Sprintf("fuzzy, %.0f%% similarity", sim*100),
	}
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// findBestMatch scans for the line (or same-height block, for multi-line
// targets) most similar to target.
func findBestMatch(text, target string) (string, float64) {
	lines := strings.Split(text, "\n")
	targetLines := strings.Split(target, "\n")

	var bestMatch string
	var bestSim float64

	consider := func(candidate string) {
		if sim := similarity(candidate, target); sim > bestSim {
			bestSim = sim
			bestMatch = candidate
		}
	}

	if len(targetLines) == 1 {
		for _, line := range lines {
			consider(line)
		}
		return bestMatch, bestSim
	}

	height := len(targetLines)
	for i := 0; i+height <= len(lines); i++ {
		consider(strings.Join(lines[i:i+height], "\n"))
	}
	return bestMatch, bestSim
}

// similarity is normalized Levenshtein similarity. Extremely long inputs
// fall back to a length ratio; exact distance there buys nothing.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) > 10000 || len(b) > 10000 {
		return float64(min(len(a), len(b))) / float64(max(len(a), len(b)))
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(max(len(a), len(b)))
}

func (t *EditTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
