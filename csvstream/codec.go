// Package csvstream decodes uploaded CSV files into ordered records and
// re-emits records as a live CSV stream.
package csvstream

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("csv must include a header row")

// ParseError reports input that is not valid CSV text.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "invalid csv: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// Header holds the column names of one upload in input order.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a header. The first occurrence of a duplicated name wins lookups.
func NewHeader(names []string) *Header {
	h := &Header{names: append([]string(nil), names...), index: make(map[string]int, len(names))}
	for i, n := range h.names {
		if _, ok := h.index[n]; !ok {
			h.index[n] = i
		}
	}
	return h
}

// Columns returns the column names in input order.
func (h *Header) Columns() []string {
	return append([]string(nil), h.names...)
}

// Has reports whether the header contains name.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// WithColumn returns the columns plus name appended, unless name already exists.
func (h *Header) WithColumn(name string) []string {
	cols := h.Columns()
	if h.Has(name) {
		return cols
	}
	return append(cols, name)
}

// Record is one CSV row: an ordered mapping from column name to value.
type Record struct {
	header *Header
	values []string
	extra  map[string]string
}

// NewRecord creates a record for h. values are copied.
func NewRecord(h *Header, values []string) *Record {
	v := make([]string, len(h.names))
	copy(v, values)
	return &Record{header: h, values: v}
}

// Get returns the value of column name, or "" when the column is absent.
func (r *Record) Get(name string) string {
	if i, ok := r.header.index[name]; ok {
		return r.values[i]
	}
	return r.extra[name]
}

// Set assigns a value. An existing column is overwritten in place; a new
// column is kept aside and written wherever the output stream places it.
func (r *Record) Set(name, value string) {
	if i, ok := r.header.index[name]; ok {
		r.values[i] = value
		return
	}
	if r.extra == nil {
		r.extra = make(map[string]string)
	}
	r.extra[name] = value
}

// Decode parses CSV text with a header row. Quoting errors and rows whose field
// count differs from the header are reported as *ParseError.
func Decode(r io.Reader) (*Header, []*Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	names, err := reader.Read()
	if err == io.EOF {
		return nil, nil, &ParseError{Err: ErrNoHeader}
	}
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}
	header := NewHeader(names)

	var records []*Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &ParseError{Err: err}
		}
		records = append(records, &Record{header: header, values: row})
	}

	return header, records, nil
}
