package executor

import (
	"bytes"
	"fmt"
	"io"
)

// outputLineLimit caps one simulator stdout line copied into the log.
const outputLineLimit = 1000

// lineLogger copies complete lines of simulator stdout into the log at debug
// level, each tagged with its job. Longer lines are cut at limit bytes.
type lineLogger struct {
	tag   string
	limit int
	line  []byte
	cut   bool
}

func newLineLogger(job int) *lineLogger {
	return &lineLogger{tag: fmt.Sprintf("[job %d] ", job), limit: outputLineLimit}
}

func (ll *lineLogger) Write(p []byte) (int, error) {
	n := len(p)
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			ll.add(p)
			return n, nil
		}
		ll.add(p[:i])
		ll.emit()
		p = p[i+1:]
	}
}

func (ll *lineLogger) add(p []byte) {
	if room := ll.limit - len(ll.line); len(p) > room {
		p = p[:max(room, 0)]
		ll.cut = true
	}
	ll.line = append(ll.line, p...)
}

func (ll *lineLogger) emit() {
	text := string(bytes.TrimRight(ll.line, "\r"))
	if ll.cut {
		text += "..."
	}
	logDebug(ll.tag + text)
	ll.line = ll.line[:0]
	ll.cut = false
}

// Flush logs a trailing line that had no newline.
func (ll *lineLogger) Flush() {
	if ll != nil && (len(ll.line) > 0 || ll.cut) {
		ll.emit()
	}
}

// stdoutFor picks where a job's stdout goes: discarded, passed through, logged
// or both.
func stdoutFor(job int, opts Options) (io.Writer, *lineLogger) {
	if !opts.LogOutput {
		if opts.Stdout != nil {
			return opts.Stdout, nil
		}
		return io.Discard, nil
	}
	ll := newLineLogger(job)
	if opts.Stdout != nil {
		return io.MultiWriter(opts.Stdout, ll), ll
	}
	return ll, ll
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return len(p), nil
	}
	b.data = append(b.data, p...)
	if over := len(b.data) - b.limit; over > 0 {
		b.data = append(b.data[:0], b.data[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string { return string(b.data) }
