package utils

import (
	"reflect"
	"strings"
	"testing"
)

func TestClip(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxRunes int
		want     string
	}{
		{"empty", "", 5, ""},
		{"zero limit", "hello", 0, ""},
		{"negative limit", "hello", -2, ""},
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"clipped with ellipsis", "hello world", 8, "hello..."},
		{"no room for ellipsis", "hello", 3, "hel"},
		{"multibyte kept whole", "你好世界", 4, "你好世界"},
		{"multibyte clipped", "你好世界test", 6, "你好世..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clip(tt.s, tt.maxRunes); got != tt.want {
				t.Fatalf("Clip(%q, %d) = %q, want %q", tt.s, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestStripTerminal(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want string
	}{
		{"plain", "initialize() callbacks executing", "initialize() callbacks executing"},
		{"colour", "\x1b[31mERROR\x1b[0m", "ERROR"},
		{"compound sequence", "\x1b[1;31;40mtext\x1b[0m", "text"},
		{"incomplete sequence", "ok\x1b[", "ok"},
		{"bare escape", "\x1bA", "A"},
		{"control bytes", "a\x00\x01b\x7f", "ab"},
		{"tabs and newlines kept", "a\tb\nc", "a\tb\nc"},
		{"progress redraw", "gen 10\rgen 20\rgen 30\nend", "gen 30\nend"},
		{"redraw only touches its line", "first\nx\ry", "first\ny"},
		{"crlf", "a\r\nb", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripTerminal(tt.s); got != tt.want {
				t.Fatalf("StripTerminal(%q) = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

func TestLastLines(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want []string
	}{
		{"empty", "", 3, nil},
		{"zero", "a\nb", 0, nil},
		{"fewer than n", "a\nb", 3, []string{"a", "b"}},
		{"blank lines skipped", "a\n\n  b \n\nc\n", 2, []string{"b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastLines(tt.s, tt.n); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("LastLines(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
			}
		})
	}
}

func BenchmarkStripTerminal(b *testing.B) {
	s := strings.Repeat("\x1b[32m// gen 1000\x1b[0m\r", 200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		StripTerminal(s)
	}
}
