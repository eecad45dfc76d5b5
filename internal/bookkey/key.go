// Package bookkey derives the stable composite identifier for a cached book
// from its title and first author.
//
// The key is the book's primary identity: two syncs of the same logical book
// must converge on the same key so that upserts replace instead of duplicate.
package bookkey

import (
	"strings"
	"unicode"
)

const (
	// SentinelTitle replaces a blank source title before keying.
	SentinelTitle = "Untitled"
	// SentinelAuthor stands in when the source has no authors at all.
	SentinelAuthor = "Unknown Author"

	maxTitleRunes  = 50
	maxAuthorRunes = 30
)

// Generate returns the composite key for a (title, authors) pair.
//
// Both halves are lower-cased, stripped to [a-z0-9.] with runs of whitespace
// and underscores collapsed into a single underscore, trimmed, truncated
// (title 50 runes, author 30) and joined with "_". Only the first author
// participates; an empty author list falls back to SentinelAuthor.
//
// Deterministic and side-effect-free for all inputs; never panics. A title
// that sanitizes to nothing yields an empty segment rather than an error.
func Generate(title string, authors []string) string {
	author := SentinelAuthor
	if len(authors) > 0 {
		author = authors[0]
	}
	return sanitize(title, maxTitleRunes) + "_" + sanitize(author, maxAuthorRunes)
}

// sanitize normalizes one key half. Periods survive so that initials like
// "J.R.R." stay recognizable in the key.
func sanitize(s string, maxRunes int) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSep := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_':
			pendingSep = true
		default:
			// Dropped entirely; does not force a separator.
		}
	}

	out := b.String()
	if len(out) > maxRunes {
		out = out[:maxRunes]
	}
	return strings.Trim(out, "_")
}
