// Package leadimport parses uploaded lead spreadsheets.
package leadimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads a comma separated header row followed by data rows.
// Quotes are parsed leniently.
type CSVParser struct {
	headerMap  map[string]int
	headers    []string
	currentRow int
	totalRows  int
	reader     *csv.Reader
	bufReader  *bufio.Reader
}

// NewCSVParser strips a UTF-8 BOM and rejects empty or non UTF-8 input
func NewCSVParser(r io.Reader) (*CSVParser, error) {
	parser := &CSVParser{headerMap: make(map[string]int)}
	parser.bufReader = bufio.NewReader(r)

	bom, err := parser.bufReader.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = parser.bufReader.Discard(3)
	}

	if err := validateUTF8(parser.bufReader); err != nil {
		return nil, err
	}

	parser.reader = csv.NewReader(parser.bufReader)
	parser.reader.LazyQuotes = true
	parser.reader.TrimLeadingSpace = true
	parser.reader.FieldsPerRecord = -1
	return parser, nil
}

// ParseFromBytes creates a parser from a byte slice
func ParseFromBytes(data []byte) (*CSVParser, error) {
	return NewCSVParser(bytes.NewReader(data))
}

// validateUTF8 checks the first 4KiB. A multi-byte rune cut at the window
// edge is tolerated.
func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return ErrEmptyFile
	}

	if len(content) == checkSize {
		for i := 0; i < utf8.UTFMax && len(content) > 0 && !utf8.Valid(content); i++ {
			content = content[:len(content)-1]
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// ParseHeader reads the header row. Names are trimmed and lower-cased so
// "Email" and " email " address the same column.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, 0, len(record))
	for i, h := range record {
		name := normalizeHeader(h)
		p.headers = append(p.headers, name)
		if _, dup := p.headerMap[name]; !dup && name != "" {
			p.headerMap[name] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}

	p.currentRow = 1
	return nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Headers returns the normalized header names in file order
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a header exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[normalizeHeader(name)]
	return ok
}

// ValidateHeaders returns the required headers that are absent
func (p *CSVParser) ValidateHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data row keyed by header
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[normalizeHeader(header)]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row. Missing trailing fields read as "", extra
// fields are dropped.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	p.totalRows++

	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headerMap)),
	}
	for name, idx := range p.headerMap {
		if idx < len(record) {
			row.Data[name] = strings.TrimSpace(record[idx])
		} else {
			row.Data[name] = ""
		}
	}
	return row, nil
}

// CurrentRow returns the current row number (1-indexed)
func (p *CSVParser) CurrentRow() int {
	return p.currentRow
}

// TotalRows returns the total number of data rows read
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}
