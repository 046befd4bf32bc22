package handoff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relaycode/relay/pkg/types"
)

// FileOps is the collapsed record of files the agent touched: short markers
// for the editor and the XML-tagged expansions the model eventually sees.
type FileOps struct {
	MarkersText string
	Expansions  map[string]string
}

// ExtractFileOps derives the touched-file record from the tool-call history
// alone; it never consults the file system. Paths written or edited count
// as modified; a path both read and modified reports only as modified.
// Returns nil when no file operations are present.
func ExtractFileOps(messages []types.MessageWithParts) *FileOps {
	read := make(map[string]struct{})
	written := make(map[string]struct{})
	edited := make(map[string]struct{})

	for _, msg := range messages {
		if msg.Info == nil || msg.Info.Role != "assistant" {
			continue
		}
		for _, part := range msg.Parts {
			tp, ok := part.(*types.ToolPart)
			if !ok {
				continue
			}
			path := pathArgument(tp.Input)
			if path == "" {
				continue
			}
			switch tp.ToolName {
			case "read":
				read[path] = struct{}{}
			case "write":
				written[path] = struct{}{}
			case "edit":
				edited[path] = struct{}{}
			}
		}
	}

	modified := make(map[string]struct{}, len(written)+len(edited))
	for p := range written {
		modified[p] = struct{}{}
	}
	for p := range edited {
		modified[p] = struct{}{}
	}
	for p := range modified {
		delete(read, p)
	}

	readOnly := sortedPaths(read)
	modifiedPaths := sortedPaths(modified)
	if len(readOnly) == 0 && len(modifiedPaths) == 0 {
		return nil
	}

	ops := &FileOps{Expansions: make(map[string]string)}
	var markers []string

	if len(readOnly) > 0 {
		marker := fmt.Sprintf("[+%d read %s]", len(readOnly), pluralize("filename", len(readOnly)))
		ops.Expansions[marker] = "<read-files>\n" + strings.Join(readOnly, "\n") + "\n</read-files>"
		markers = append(markers, marker)
	}
	if len(modifiedPaths) > 0 {
		marker := fmt.Sprintf("[+%d modified %s]", len(modifiedPaths), pluralize("filename", len(modifiedPaths)))
		ops.Expansions[marker] = "<modified-files>\n" + strings.Join(modifiedPaths, "\n") + "\n</modified-files>"
		markers = append(markers, marker)
	}

	ops.MarkersText = strings.Join(markers, "\n")
	return ops
}

// pathArgument pulls the file path out of a tool call's arguments. The file
// tools take filePath; path is accepted for externally registered tools.
func pathArgument(input map[string]any) string {
	if p, ok := input["path"].(string); ok {
		return p
	}
	if p, ok := input["filePath"].(string); ok {
		return p
	}
	return ""
}

func sortedPaths(set map[string]struct{}) []string {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
