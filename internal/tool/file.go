package tool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/relaycode/relay/internal/event"
)

// File-kind sniffing shared by the file tools.

var imageMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

func isImageFile(path string) bool {
	_, ok := imageMediaTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

func detectMediaType(path string) string {
	if mt, ok := imageMediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// isBinaryFile sniffs the first chunk of a file: any NUL byte, or a high
// ratio of non-printable bytes, marks it binary.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 8000)
	n, _ := f.Read(buf)
	if n == 0 {
		return false
	}

	nonPrintable := 0
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(n) > 0.3
}

// shouldBlockEnvFile blocks paths containing ".env" so credentials never
// enter the transcript. Template files (.env.sample, .example) pass.
func shouldBlockEnvFile(filePath string) bool {
	for _, allowed := range []string{".env.sample", ".example"} {
		if strings.HasSuffix(filePath, allowed) {
			return false
		}
	}
	return strings.Contains(filePath, ".env")
}

// publishFileEdited announces a mutation on the event bus. Only calls made
// from a live session announce; direct tool invocations stay quiet.
func publishFileEdited(toolCtx *Context, path string) {
	if toolCtx == nil || toolCtx.SessionID == "" {
		return
	}
	event.Publish(event.Event{
		Type: event.FileEdited,
		Data: event.FileEditedData{File: path},
	})
}

// readExisting returns a file's current content, or "" when it does not
// exist yet. The before/after pair feeds the session's diff tracking.
func readExisting(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
