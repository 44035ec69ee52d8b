// Package mention finds @handles in user text and turns them into mention
// records and notification events.
package mention

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

const (
	MinHandleLength = 3
	MaxHandleLength = 32
)

// handlePattern matches '@' at start of text or after whitespace (including
// Unicode space separators such as NBSP), followed by
// the longest run of handle characters. Length is checked after matching so an
// over-long run is rejected instead of truncated.
var handlePattern = regexp.MustCompile(`(?:^|[\s\p{Zs}])@([A-Za-z0-9._-]+)`)

// Extract returns the unique handles mentioned in text, in first-occurrence order.
// A run followed directly by another '@' looks like an email address and is skipped.
// Trailing dots are sentence punctuation, not part of the handle.
func Extract(text string) []string {
	matches := handlePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		start, end := m[2], m[3]
		if end < len(text) && text[end] == '@' {
			continue
		}

		handle := strings.TrimRight(text[start:end], ".")
		if len(handle) < MinHandleLength || len(handle) > MaxHandleLength {
			continue
		}
		handles = append(handles, handle)
	}

	if len(handles) == 0 {
		return nil
	}
	return lo.Uniq(handles)
}
