// Package table loads delimited text into named, column-oriented string
// tables. No type coercion happens here; consumers parse the columns they
// expect and report their own mismatches.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"slimsweep/internal/errs"
)

// Options controls how a table is split.
type Options struct {
	Header  bool
	Comma   rune // defaults to ','
	Comment rune // 0 disables comment lines
}

// Table is an immutable column-oriented view of a delimited file.
type Table struct {
	Path    string
	Columns []string
	cols    map[string][]string
	order   [][]string
}

// SyntheticName is the column name used for position i when a file has no
// header row.
func SyntheticName(i int) string {
	return "X" + strconv.Itoa(i)
}

// Load opens path and reads it as a table.
func Load(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.FileAccessError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		var cfgErr *errs.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, errs.Configf("%s: %s", path, cfgErr.Reason)
		}
		return nil, &errs.FileAccessError{Path: path, Op: "read", Err: err}
	}
	t.Path = path
	return t, nil
}

// Read parses r as a table. Quoted fields may contain the delimiter, quotes
// and newlines; column i of the header always maps to field i of each row.
// Cells are kept verbatim, surrounding blanks included; header names are
// trimmed.
func Read(r io.Reader, opts Options) (*Table, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.Comment = opts.Comment
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, errs.Configf("line %d: %v", pe.Line, pe.Err)
			}
			return nil, err
		}
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}

	t := &Table{cols: make(map[string][]string)}
	if len(records) == 0 {
		return t, nil
	}

	if opts.Header {
		header := records[0]
		records = records[1:]
		seen := make(map[string]struct{}, len(header))
		for i, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				name = SyntheticName(i)
			}
			if _, dup := seen[name]; dup {
				return nil, errs.Configf("duplicate column %q in header", name)
			}
			seen[name] = struct{}{}
			t.Columns = append(t.Columns, name)
		}
	} else {
		for i := range records[0] {
			t.Columns = append(t.Columns, SyntheticName(i))
		}
	}

	width := len(t.Columns)
	for i, rec := range records {
		if len(rec) != width {
			line := i + 1
			if opts.Header {
				line++
			}
			return nil, errs.Configf("line %d has %d fields, want %d", line, len(rec), width)
		}
	}

	for c, name := range t.Columns {
		values := make([]string, len(records))
		for r, rec := range records {
			values[r] = rec[c]
		}
		t.cols[name] = values
	}
	t.order = records
	return t, nil
}

// isBlank reports a line holding nothing but whitespace. A record of empty
// fields such as "," is a row of empty cells and is kept.
func isBlank(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Column returns the raw values of the named column in row order.
func (t *Table) Column(name string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	values, ok := t.cols[name]
	return values, ok
}

// Row returns the raw fields of data row i in column order.
func (t *Table) Row(i int) []string {
	if t == nil || i < 0 || i >= len(t.order) {
		return nil
	}
	return t.order[i]
}

// String describes the table shape for logs.
func (t *Table) String() string {
	if t == nil {
		return "table(nil)"
	}
	return fmt.Sprintf("table(%s: %d columns, %d rows)", t.Path, len(t.Columns), t.Len())
}
