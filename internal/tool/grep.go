package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	einotool "github.com/cloudwego/eino/components/tool"
)

const grepDescription = `A powerful content search tool built on ripgrep.

Usage:
- Supports full regex syntax (e.g., "log.*Error", "function\\s+\\w+")
- Filter files with glob parameter (e.g., "*.js", "**/*.tsx")
- Returns matching lines with file paths and line numbers`

// grepMaxMatches caps one call's result list.
const grepMaxMatches = 100

// GrepTool implements content search. It shells out to ripgrep and falls
// back to a pure-Go scan when rg is not installed.
type GrepTool struct {
	workDir string
}

// GrepInput represents the input for the grep tool.
type GrepInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
	Include string `json:"include,omitempty"` // file pattern to include (e.g., "*.js")
}

// NewGrepTool creates a new grep tool.
func NewGrepTool(workDir string) *GrepTool {
	return &GrepTool{workDir: workDir}
}

func (t *GrepTool) ID() string          { return "grep" }
func (t *GrepTool) Description() string { return grepDescription }

func (t *GrepTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The regex pattern to search for in file contents"
			},
			"path": {
				"type": "string",
				"description": "The directory to search in. Defaults to the current working directory."
			},
			"include": {
				"type": "string",
				"description": "File pattern to include in the search (e.g. \"*.js\", \"*.{ts,tsx}\")"
			}
		},
		"required": ["pattern"]
	}`)
}

// GrepMatch represents a search match.
type GrepMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

func (t *GrepTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params GrepInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	searchPath := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		searchPath = toolCtx.WorkDir
	}
	if params.Path != "" {
		searchPath = params.Path
	}

	var matches []GrepMatch
	var err error
	if _, lookErr := exec.LookPath("rg"); lookErr == nil {
		matches, err = ripgrepSearch(ctx, searchPath, params)
	} else {
		matches, err = nativeSearch(ctx, searchPath, params)
	}
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return &Result{
			Title:  "Search results",
			Output: "No matches found",
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	truncated := len(matches) > grepMaxMatches
	if truncated {
		matches = matches[:grepMaxMatches]
	}

	var sb strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&sb, "%s:%d: %s\n", m.File, m.Line, m.Content)
	}
	if truncated {
		fmt.Fprintf(&sb, "\n(Showing %d of more matches)", grepMaxMatches)
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d matches", len(matches)),
		Output: sb.String(),
		Metadata: map[string]any{
			"pattern":   params.Pattern,
			"count":     len(matches),
			"truncated": truncated,
		},
	}, nil
}

// ripgrepSearch delegates to rg and parses its file:line:content output.
func ripgrepSearch(ctx context.Context, searchPath string, params GrepInput) ([]GrepMatch, error) {
	args := []string{"--line-number", "--with-filename", "--color=never"}
	if params.Include != "" {
		args = append(args, "--glob", params.Include)
	}
	args = append(args, params.Pattern, searchPath)

	// rg exits non-zero on no matches; that is not an error here.
	output, _ := exec.CommandContext(ctx, "rg", args...).Output()

	var matches []GrepMatch
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		lineNum, _ := strconv.Atoi(parts[1])
		matches = append(matches, GrepMatch{File: parts[0], Line: lineNum, Content: parts[2]})
	}
	return matches, nil
}

// nativeSearch is the fallback: walk the tree and scan line by line with
// the standard regexp engine. Slower than rg, but always available.
func nativeSearch(ctx context.Context, searchPath string, params GrepInput) ([]GrepMatch, error) {
	re, err := regexp.Compile(params.Pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", params.Pattern, err)
	}

	var matches []GrepMatch
	walkErr := filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			if shouldIgnore(d.Name(), true, defaultIgnorePatterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if params.Include != "" {
			if ok, _ := doublestar.Match(params.Include, d.Name()); !ok {
				return nil
			}
		}
		if isBinaryFile(path) {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if re.MatchString(line) {
				matches = append(matches, GrepMatch{File: path, Line: lineNum, Content: line})
			}
		}
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return nil, walkErr
	}
	return matches, nil
}

func (t *GrepTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
