package seed

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"slimsweep/internal/errs"
)

// DefaultHeader is the column name written above the seeds.
const DefaultHeader = "Seed"

// HeaderLine returns the header as it is written. An empty header writes no
// line; a single leading '=' is dropped so that "-t=Name" style flags keep
// working.
func HeaderLine(header string) string {
	return strings.TrimPrefix(header, "=")
}

// WriteTable writes seeds one per line, optionally preceded by a header.
// The last value is not followed by a newline.
func WriteTable(w io.Writer, seeds []uint64, header string) error {
	bw := bufio.NewWriter(w)
	if header != "" {
		if _, err := bw.WriteString(HeaderLine(header) + "\n"); err != nil {
			return err
		}
	}
	var buf []byte
	for i, s := range seeds {
		buf = strconv.AppendUint(buf[:0], s, 10)
		if i < len(seeds)-1 {
			buf = append(buf, '\n')
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the seed table to path, replacing any existing file.
func WriteFile(path string, seeds []uint64, header string) error {
	f, err := os.Create(path)
	if err != nil {
		return &errs.FileAccessError{Path: path, Op: "create", Err: err}
	}
	if err := WriteTable(f, seeds, header); err != nil {
		_ = f.Close()
		return &errs.FileAccessError{Path: path, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		return &errs.FileAccessError{Path: path, Op: "close", Err: err}
	}
	return nil
}
