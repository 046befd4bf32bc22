package permission

import (
	"strings"
)

// candidateKeys lists the permission-map lookups for a command, most
// specific first: "git commit *", "git *", "git", "*".
func candidateKeys(cmd BashCommand) []string {
	keys := make([]string, 0, 4)
	if cmd.Subcommand != "" {
		keys = append(keys, cmd.Name+" "+cmd.Subcommand+" *")
	}
	return append(keys, cmd.Name+" *", cmd.Name, "*")
}

// MatchBashPermission resolves the action for a command against a
// pattern-keyed permission map. Unmatched commands ask.
func MatchBashPermission(cmd BashCommand, permissions map[string]PermissionAction) PermissionAction {
	for _, key := range candidateKeys(cmd) {
		if action, ok := permissions[key]; ok {
			return action
		}
	}
	return ActionAsk
}

// MatchPattern checks a command against one wildcard pattern. Patterns are
// space-separated tokens: "*" alone matches everything, a trailing "*"
// matches any remaining arguments, and a bare command token requires an
// argument-free invocation of exactly that command.
func MatchPattern(pattern string, cmd BashCommand) bool {
	tokens := strings.Split(pattern, " ")
	if len(tokens) == 0 {
		return false
	}

	if tokens[0] == "*" && len(tokens) == 1 {
		return true
	}
	if tokens[0] != "*" && tokens[0] != cmd.Name {
		return false
	}
	if len(tokens) == 1 {
		return cmd.Name == tokens[0] && len(cmd.Args) == 0
	}

	if tokens[len(tokens)-1] == "*" {
		// Fixed tokens before the trailing wildcard pin the leading args.
		for i, tok := range tokens[1 : len(tokens)-1] {
			if i >= len(cmd.Args) {
				return false
			}
			if tok != "*" && tok != cmd.Args[i] {
				return false
			}
		}
		return true
	}

	// No wildcard: the whole argument list must match.
	if len(tokens)-1 != len(cmd.Args) {
		return false
	}
	for i, tok := range tokens[1:] {
		if tok != cmd.Args[i] {
			return false
		}
	}
	return true
}

// BuildPattern derives the grant pattern for a command: subcommand-scoped
// when one exists ("git commit *"), command-scoped otherwise ("ls *").
func BuildPattern(cmd BashCommand) string {
	if cmd.Subcommand != "" {
		return cmd.Name + " " + cmd.Subcommand + " *"
	}
	return cmd.Name + " *"
}

// BuildPatterns derives deduplicated grant patterns for a command list.
// "cd" is excluded; directory changes are policed by path checks instead.
func BuildPatterns(commands []BashCommand) []string {
	seen := make(map[string]bool)
	var patterns []string
	for _, cmd := range commands {
		if cmd.Name == "cd" {
			continue
		}
		p := BuildPattern(cmd)
		if seen[p] {
			continue
		}
		seen[p] = true
		patterns = append(patterns, p)
	}
	return patterns
}
