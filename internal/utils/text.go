// Package utils holds text helpers for simulator output shown in reports.
package utils

import (
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

// Clip shortens s to at most maxRunes runes. A clipped value ends in "..."
// when there is room for it; it is never cut inside a UTF-8 sequence.
func Clip(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	keep := maxRunes
	suffix := ""
	if maxRunes > len(ellipsis) {
		keep = maxRunes - len(ellipsis)
		suffix = ellipsis
	}
	n := 0
	for i := range s {
		if n == keep {
			return s[:i] + suffix
		}
		n++
	}
	return s
}

// StripTerminal removes CSI escape sequences and control characters. A
// carriage return inside a line discards what came before it, as a terminal
// would when a progress line is redrawn.
func StripTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lineStart := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\x1b' && i+1 < len(s) && s[i+1] == '[':
			i += 2
			for i < len(s) && !(s[i] >= 0x40 && s[i] <= 0x7e) {
				i++
			}
		case c == '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				continue
			}
			out := b.String()[:lineStart]
			b.Reset()
			b.WriteString(out)
		case c == '\n':
			b.WriteByte(c)
			lineStart = b.Len()
		case c == '\t' || (c >= 0x20 && c != 0x7f):
			b.WriteByte(c)
		}
	}
	return b.String()
}

// LastLines returns up to n trailing non-blank lines of s, trimmed.
func LastLines(s string, n int) []string {
	if n <= 0 {
		return nil
	}
	lines := strings.Split(s, "\n")
	var out []string
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			out = append(out, line)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
