package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/relaycode/relay/internal/permission"
)

const (
	DefaultBashTimeout = 120 * time.Second
	MaxBashTimeout     = 10 * time.Minute
	MaxOutputLength    = 30000
)

const bashDescription = `Executes a bash command in a persistent shell session.

Usage:
- Command is required
- Optional timeout in milliseconds (max 600000)
- Provide a brief description of what the command does
- Output is captured from stdout and stderr
- Commands are run with process group for proper cleanup`

// BashTool implements shell command execution.
type BashTool struct {
	workDir     string
	shell       string
	permChecker *permission.Checker
	permissions map[string]permission.PermissionAction // bash command patterns
	externalDir permission.PermissionAction            // action for external directory access
}

// BashInput represents the input for the bash tool.
type BashInput struct {
	Command     string `json:"command"`
	Timeout     int    `json:"timeout,omitempty"` // milliseconds
	Description string `json:"description"`
}

// BashToolOption configures the bash tool.
type BashToolOption func(*BashTool)

// WithPermissionChecker sets the permission checker for the bash tool.
func WithPermissionChecker(checker *permission.Checker) BashToolOption {
	return func(t *BashTool) {
		t.permChecker = checker
	}
}

// WithBashPermissions sets the bash command permission patterns.
func WithBashPermissions(perms map[string]permission.PermissionAction) BashToolOption {
	return func(t *BashTool) {
		t.permissions = perms
	}
}

// WithExternalDirAction sets the action for external directory access.
func WithExternalDirAction(action permission.PermissionAction) BashToolOption {
	return func(t *BashTool) {
		t.externalDir = action
	}
}

// NewBashTool creates a new bash tool.
func NewBashTool(workDir string, opts ...BashToolOption) *BashTool {
	t := &BashTool{
		workDir:     workDir,
		shell:       detectShell(),
		permissions: make(map[string]permission.PermissionAction),
		externalDir: permission.ActionAsk,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// detectShell picks the user's shell, skipping ones whose syntax the
// permission parser cannot read.
func detectShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		switch s {
		case "/bin/fish", "/usr/bin/fish", "/bin/nu", "/usr/bin/nu":
		default:
			return s
		}
	}

	switch runtime.GOOS {
	case "darwin":
		return "/bin/zsh"
	case "windows":
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}

	if bash, err := exec.LookPath("bash"); err == nil {
		return bash
	}
	return "/bin/sh"
}

func (t *BashTool) ID() string          { return "bash" }
func (t *BashTool) Description() string { return bashDescription }

func (t *BashTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {
				"type": "string",
				"description": "The command to execute"
			},
			"timeout": {
				"type": "integer",
				"description": "Optional timeout in milliseconds (max 600000)"
			},
			"description": {
				"type": "string",
				"description": "Brief description of what this command does"
			}
		},
		"required": ["command", "description"]
	}`)
}

func (t *BashTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params BashInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	if t.permChecker != nil && toolCtx != nil {
		if err := t.checkPermissions(ctx, params.Command, toolCtx); err != nil {
			return nil, err
		}
	}

	timeout := resolveTimeout(params.Timeout)
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := t.buildCmd(cmdCtx, params.Command, toolCtx)

	if toolCtx != nil {
		toolCtx.SetMetadata(params.Description, map[string]any{
			"output":      "",
			"description": params.Description,
		})
	}

	output, err := cmd.CombinedOutput()
	timedOut := cmdCtx.Err() == context.DeadlineExceeded

	result := string(output)
	if len(result) > MaxOutputLength {
		result = result[:MaxOutputLength] + "\n\n(Output truncated)"
	}
	if timedOut {
		result += fmt.Sprintf("\n\n(Command timed out after %v)", timeout)
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && !timedOut {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			result += fmt.Sprintf("\n\nError: %v", err)
		}
	}

	title := params.Description
	if title == "" {
		title = "Run command"
	}

	return &Result{
		Title:  title,
		Output: result,
		Metadata: map[string]any{
			"output":      result,
			"exit":        exitCode,
			"description": params.Description,
		},
	}, nil
}

// resolveTimeout clamps the requested timeout into [default, max].
func resolveTimeout(ms int) time.Duration {
	if ms <= 0 {
		return DefaultBashTimeout
	}
	timeout := time.Duration(ms) * time.Millisecond
	if timeout > MaxBashTimeout {
		return MaxBashTimeout
	}
	return timeout
}

// buildCmd prepares the shell invocation with its working directory and a
// process group, so a timeout can take child processes down too.
func (t *BashTool) buildCmd(ctx context.Context, command string, toolCtx *Context) *exec.Cmd {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, t.shell, "/c", command)
	} else {
		cmd = exec.CommandContext(ctx, t.shell, "-c", command)
	}

	if toolCtx != nil && toolCtx.WorkDir != "" {
		cmd.Dir = toolCtx.WorkDir
	} else if t.workDir != "" {
		cmd.Dir = t.workDir
	}
	cmd.Env = os.Environ()
	if runtime.GOOS != "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
	return cmd
}

func (t *BashTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}

// checkPermissions parses the command line and polices every command it
// reaches: dangerous file operations get path checks, everything else goes
// through the pattern policy.
func (t *BashTool) checkPermissions(ctx context.Context, command string, toolCtx *Context) error {
	commands, err := permission.ParseBashCommand(command)
	if err != nil {
		// Unparseable input gets the most conservative treatment.
		return t.permChecker.Ask(ctx, permission.Request{
			Type:      permission.PermBash,
			Pattern:   []string{command},
			SessionID: toolCtx.SessionID,
			MessageID: toolCtx.MessageID,
			CallID:    toolCtx.CallID,
			Title:     command,
			Metadata: map[string]any{
				"command":      command,
				"parse_failed": true,
			},
		})
	}

	workDir := t.workDir
	if toolCtx.WorkDir != "" {
		workDir = toolCtx.WorkDir
	}

	var askPatterns []string
	for _, cmd := range commands {
		if permission.IsDangerousCommand(cmd.Name) {
			if err := t.checkPathSafety(ctx, cmd, command, workDir, toolCtx); err != nil {
				return err
			}
		}

		// cd only matters for its path, checked above
		if cmd.Name == "cd" {
			continue
		}

		switch permission.MatchBashPermission(cmd, t.permissions) {
		case permission.ActionDeny:
			return &permission.RejectedError{
				SessionID: toolCtx.SessionID,
				Type:      permission.PermBash,
				CallID:    toolCtx.CallID,
				Message:   fmt.Sprintf("Command not allowed: %s", cmd.Name),
				Metadata: map[string]any{
					"command":     command,
					"permissions": t.permissions,
				},
			}
		case permission.ActionAsk:
			askPatterns = append(askPatterns, permission.BuildPattern(cmd))
		}
	}

	if len(askPatterns) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	unique := askPatterns[:0]
	for _, p := range askPatterns {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}

	return t.permChecker.Ask(ctx, permission.Request{
		Type:      permission.PermBash,
		Pattern:   unique,
		SessionID: toolCtx.SessionID,
		MessageID: toolCtx.MessageID,
		CallID:    toolCtx.CallID,
		Title:     command,
		Metadata: map[string]any{
			"command":  command,
			"patterns": unique,
		},
	})
}

// checkPathSafety applies the external-directory policy to every path a
// file-mutating command touches.
func (t *BashTool) checkPathSafety(ctx context.Context, cmd permission.BashCommand, command, workDir string, toolCtx *Context) error {
	for _, p := range permission.ExtractPaths(cmd) {
		resolved, err := permission.ResolvePath(ctx, p, workDir)
		if err != nil {
			continue
		}
		if permission.IsWithinDir(resolved, workDir) {
			continue
		}

		switch t.externalDir {
		case permission.ActionDeny:
			return &permission.RejectedError{
				SessionID: toolCtx.SessionID,
				Type:      permission.PermExternalDir,
				CallID:    toolCtx.CallID,
				Message:   fmt.Sprintf("Command references paths outside of %s", workDir),
				Metadata: map[string]any{
					"command": command,
					"path":    resolved,
				},
			}
		case permission.ActionAsk:
			err := t.permChecker.Ask(ctx, permission.Request{
				Type:      permission.PermExternalDir,
				Pattern:   []string{filepath.Dir(resolved), filepath.Join(filepath.Dir(resolved), "*")},
				SessionID: toolCtx.SessionID,
				MessageID: toolCtx.MessageID,
				CallID:    toolCtx.CallID,
				Title:     fmt.Sprintf("Command references paths outside of %s", workDir),
				Metadata: map[string]any{
					"command": command,
					"path":    resolved,
				},
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
