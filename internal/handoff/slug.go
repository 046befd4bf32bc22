package handoff

import "strings"

// maxSlugLen bounds the goal fragment embedded in session file names.
const maxSlugLen = 50

// Slug normalizes a goal into a file-name fragment: lowercased, stripped to
// [a-z0-9 -], whitespace runs collapsed to single hyphens, truncated to 50
// characters. Degenerate input yields "".
func Slug(goal string) string {
	lower := strings.ToLower(goal)

	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '-':
			b.WriteRune(r)
		}
	}

	slug := strings.Join(strings.Fields(b.String()), "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug
}
