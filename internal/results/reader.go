package results

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"slimsweep/internal/errs"
	"slimsweep/internal/utils"
)

const (
	lineReaderSize   = 64 * 1024
	lineMaxBytes     = 1 << 20
	linePreviewBytes = 512
	linePreviewRunes = 100
)

// ReadFile loads every record of a results file.
func ReadFile(path string, warnFn func(string)) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.FileAccessError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	recs, err := Read(f, warnFn)
	if err != nil {
		return recs, &errs.FileAccessError{Path: path, Op: "read", Err: err}
	}
	return recs, nil
}

// Read decodes JSON lines from r. Blank lines are ignored; overlong or
// malformed lines are reported through warnFn and skipped.
func Read(r io.Reader, warnFn func(string)) ([]Record, error) {
	if warnFn == nil {
		warnFn = func(string) {}
	}
	reader := bufio.NewReaderSize(r, lineReaderSize)

	var recs []Record
	for lineNo := 1; ; lineNo++ {
		line, overlong, err := nextLine(reader)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}

		line = bytes.TrimSpace(line)
		switch {
		case overlong:
			warnFn(fmt.Sprintf("line %d: skipped overlong record (> %d bytes): %s", lineNo, lineMaxBytes, utils.Clip(string(line), linePreviewRunes)))
			continue
		case len(line) == 0:
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			warnFn(fmt.Sprintf("line %d: skipped malformed record: %s", lineNo, utils.Clip(string(line), linePreviewRunes)))
			continue
		}
		recs = append(recs, rec)
	}
}

// nextLine reads one newline-terminated line. A line over lineMaxBytes is
// drained and only its first bytes are returned, with overlong set.
func nextLine(r *bufio.Reader) (line []byte, overlong bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !overlong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > lineMaxBytes {
				line, overlong = line[:linePreviewBytes], true
			}
		}
		switch {
		case errors.Is(readErr, bufio.ErrBufferFull):
			continue
		case errors.Is(readErr, io.EOF) && len(line) > 0:
			return line, overlong, nil
		case readErr != nil:
			return nil, false, readErr
		}
		return line, overlong, nil
	}
}
