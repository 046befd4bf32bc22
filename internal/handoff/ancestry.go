package handoff

import (
	"github.com/relaycode/relay/internal/session"
)

// Ancestry follows the parent chain from start, reading only each file's
// header line. The returned chain begins with start itself. The walk stops
// on a missing file, a malformed header, a missing parent, or a cycle.
func Ancestry(start string) []string {
	var chain []string
	visited := make(map[string]struct{})

	for path := start; path != ""; {
		if _, seen := visited[path]; seen {
			break
		}
		visited[path] = struct{}{}
		chain = append(chain, path)

		header, err := session.ReadHeader(path)
		if err != nil || header.Type != "session" {
			break
		}
		path = header.ParentSession
	}

	return chain
}
