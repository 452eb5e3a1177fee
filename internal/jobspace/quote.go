package jobspace

import (
	"strings"
)

const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_=+./,:@%"

// ShellQuote quotes a single argument for a POSIX shell. Safe tokens are
// returned as-is; anything else is wrapped in double quotes with \ " $ and `
// backslash-escaped, which keeps simulator string literals such as
// name='a' readable as "name='a'".
func ShellQuote(arg string) string {
	if arg == "" {
		return `""`
	}
	if strings.Trim(arg, shellSafe) == "" {
		return arg
	}
	var b strings.Builder
	b.Grow(len(arg) + 2)
	b.WriteByte('"')
	for i := 0; i < len(arg); i++ {
		switch c := arg[i]; c {
		case '\\', '"', '$', '`':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// JoinArgs quotes and joins argv into one command line.
func JoinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// QuoteLiteral renders s as a single-quoted simulator string literal,
// escaping backslashes and single quotes.
func QuoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '\\' || c == '\'' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('\'')
	return b.String()
}

// UnquoteLiteral reverses QuoteLiteral. ok is false when lit is not a
// well-formed single-quoted literal.
func UnquoteLiteral(lit string) (string, bool) {
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return "", false
	}
	body := lit[1 : len(lit)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '\\':
			if i+1 >= len(body) {
				return "", false
			}
			i++
			b.WriteByte(body[i])
		case '\'':
			return "", false
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}
