package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	einotool "github.com/cloudwego/eino/components/tool"
)

const globDescription = `Fast file pattern matching tool that works with any codebase size.

Usage:
- Supports glob patterns like "**/*.js" or "src/**/*.ts"
- Returns matching file paths sorted by modification time
- Use this tool when you need to find files by name patterns`

// globMaxFiles caps one call's result list.
const globMaxFiles = 100

// GlobTool implements file pattern matching.
type GlobTool struct {
	workDir string
}

// GlobInput represents the input for the glob tool.
type GlobInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// NewGlobTool creates a new glob tool.
func NewGlobTool(workDir string) *GlobTool {
	return &GlobTool{workDir: workDir}
}

func (t *GlobTool) ID() string          { return "glob" }
func (t *GlobTool) Description() string { return globDescription }

func (t *GlobTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The glob pattern to match files against"
			},
			"path": {
				"type": "string",
				"description": "Directory to search in (default: current directory)"
			}
		},
		"required": ["pattern"]
	}`)
}

// globMatch is one hit with the mtime used for ordering.
type globMatch struct {
	path    string
	modTime time.Time
}

func (t *GlobTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params GlobInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	searchDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		searchDir = toolCtx.WorkDir
	}
	if params.Path != "" {
		if filepath.IsAbs(params.Path) {
			searchDir = params.Path
		} else {
			searchDir = filepath.Join(searchDir, params.Path)
		}
	}

	matches, err := globFiles(ctx, searchDir, params.Pattern)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return &Result{
			Title:  "Glob search",
			Output: "No files matched the pattern",
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	// Most recently modified first
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].modTime.After(matches[j].modTime)
	})

	truncated := len(matches) > globMaxFiles
	if truncated {
		matches = matches[:globMaxFiles]
	}

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.path
	}
	output := strings.Join(paths, "\n")
	if truncated {
		output += fmt.Sprintf("\n\n(Showing %d of more files)", globMaxFiles)
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d files", len(matches)),
		Output: output,
		Metadata: map[string]any{
			"pattern":   params.Pattern,
			"count":     len(matches),
			"truncated": truncated,
		},
	}, nil
}

// globFiles walks dir matching pattern against slash-relative paths.
// Ignored directories (.git, node_modules, ...) are pruned before descent,
// which is what keeps this usable on large trees.
func globFiles(ctx context.Context, dir, pattern string) ([]globMatch, error) {
	var matches []globMatch

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if shouldIgnore(d.Name(), true, defaultIgnorePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		ok, merr := doublestar.Match(pattern, rel)
		if merr != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, merr)
		}
		if !ok {
			return nil
		}

		var modTime time.Time
		if info, ierr := d.Info(); ierr == nil {
			modTime = info.ModTime()
		}
		matches = append(matches, globMatch{path: rel, modTime: modTime})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return matches, nil
}

func (t *GlobTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
