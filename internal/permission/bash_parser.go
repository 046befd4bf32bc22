package permission

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// BashCommand represents a parsed command with its arguments.
type BashCommand struct {
	Name       string   // Command name (e.g., "rm", "git")
	Args       []string // Command arguments
	Subcommand string   // First non-flag argument (e.g., "commit" in "git commit")
}

// ParseBashCommand parses a shell line into the commands it would run.
// Pipelines, &&/||/; chains, and subshells all contribute their calls, so a
// permission check sees every command the line reaches, not just the first.
func ParseBashCommand(command string) ([]BashCommand, error) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)

	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}

	var commands []BashCommand
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		name := flattenWord(call.Args[0])
		if name == "" {
			return true
		}

		cmd := BashCommand{Name: name}
		for _, word := range call.Args[1:] {
			arg := flattenWord(word)
			cmd.Args = append(cmd.Args, arg)
			if cmd.Subcommand == "" && !strings.HasPrefix(arg, "-") {
				cmd.Subcommand = arg
			}
		}
		commands = append(commands, cmd)
		return true
	})

	return commands, nil
}

// flattenWord renders a shell word as plain text. Dynamic pieces keep a
// recognizable shape ("$VAR", "$()") so pattern matching stays
// conservative instead of silently matching expanded content.
func flattenWord(word *syntax.Word) string {
	var b strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			b.WriteString(p.Value)
		case *syntax.SglQuoted:
			b.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					b.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			b.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			b.WriteString("$()")
		}
	}
	return b.String()
}

// DangerousCommands are commands that modify files and need path validation.
var DangerousCommands = map[string]bool{
	"cd":    true,
	"rm":    true,
	"cp":    true,
	"mv":    true,
	"mkdir": true,
	"touch": true,
	"chmod": true,
	"chown": true,
	"rmdir": true,
	"dd":    true,
}

// IsDangerousCommand checks if a command is in the dangerous list.
func IsDangerousCommand(name string) bool {
	return DangerousCommands[name]
}

// ExtractPaths returns the path-like arguments of a command: everything
// that is not a flag, and for chmod not the mode argument either.
func ExtractPaths(cmd BashCommand) []string {
	var paths []string
	for _, arg := range cmd.Args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if cmd.Name == "chmod" && isChmodMode(arg) {
			continue
		}
		paths = append(paths, arg)
	}
	return paths
}

// isChmodMode recognizes numeric (755) and symbolic (u+x, +x, =r) modes.
func isChmodMode(arg string) bool {
	if arg == "" {
		return false
	}
	switch c := arg[0]; {
	case c >= '0' && c <= '9':
		return strings.Trim(arg, "01234567") == ""
	case c == 'u', c == 'g', c == 'o', c == 'a', c == '+', c == '=':
		return strings.Trim(arg, "ugoa+-=,rwxXst") == "" && strings.ContainsAny(arg, "+-=")
	}
	return false
}

// ResolvePath resolves a path against workDir. "~" is passed through
// unexpanded; expanding it would require knowing whose home to use.
func ResolvePath(ctx context.Context, path, workDir string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if strings.HasPrefix(path, "~") {
		return path, nil
	}
	return filepath.Clean(filepath.Join(workDir, path)), nil
}

// IsWithinDir checks if path is within or under directory.
func IsWithinDir(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
