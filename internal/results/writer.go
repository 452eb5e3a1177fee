package results

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"slimsweep/internal/errs"
)

// Writer appends records as JSON lines. It is safe for concurrent use by
// dispatcher workers; every record is flushed as soon as it is written.
type Writer struct {
	mu     sync.Mutex
	path   string
	buf    *bufio.Writer
	closer io.Closer
	count  int
}

// Create truncates or creates path.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &errs.FileAccessError{Path: path, Op: "create", Err: err}
	}
	w := NewWriter(f)
	w.path = path
	w.closer = f
	return w, nil
}

// NewWriter writes to w without taking ownership of it.
func NewWriter(w io.Writer) *Writer {
	return &Writer{buf: bufio.NewWriter(w)}
}

func (w *Writer) Write(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.buf.Write(append(data, '\n')); err != nil {
		return w.wrap("write", err)
	}
	if err := w.buf.Flush(); err != nil {
		return w.wrap("write", err)
	}
	w.count++
	return nil
}

// Count is the number of records written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *Writer) Path() string { return w.path }

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return w.wrap("write", err)
	}
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	if err != nil {
		return w.wrap("close", err)
	}
	return nil
}

func (w *Writer) wrap(op string, err error) error {
	if w.path == "" {
		return err
	}
	return &errs.FileAccessError{Path: w.path, Op: op, Err: err}
}
