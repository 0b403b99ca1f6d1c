package leadimport

import (
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EmailColumn is the only column every lead file must carry
const EmailColumn = "email"

// LeadRow is a validated lead with every column of its source row
type LeadRow struct {
	LineNumber int
	Email      string
	Fields     map[string]string
}

// Result is the outcome of parsing a lead file
type Result struct {
	Leads       []LeadRow
	TotalRows   int
	Errors      []RowError
	TotalErrors int
	IsTruncated bool
}

// LeadParser validates lead files
type LeadParser struct {
	validate  *validator.Validate
	maxRows   int
	maxErrors int
}

// LeadParserOption configures a LeadParser
type LeadParserOption func(*LeadParser)

// WithMaxRows caps the number of data rows accepted
func WithMaxRows(n int) LeadParserOption {
	return func(p *LeadParser) {
		p.maxRows = n
	}
}

// WithMaxErrors caps the number of row errors reported
func WithMaxErrors(n int) LeadParserOption {
	return func(p *LeadParser) {
		p.maxErrors = n
	}
}

// NewLeadParser creates a parser allowing 10000 rows and reporting 100 errors
func NewLeadParser(opts ...LeadParserOption) *LeadParser {
	p := &LeadParser{
		validate:  validator.New(),
		maxRows:   10000,
		maxErrors: 100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads a CSV lead file. Blank rows are skipped. Rows with a missing
// or malformed email, or repeating an earlier email, are reported and left
// out of Leads. A file without any valid lead fails with ErrNoDataRows; the
// partial Result is still returned when rows were rejected.
func (p *LeadParser) Parse(data []byte) (*Result, error) {
	parser, err := ParseFromBytes(data)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.ValidateHeaders([]string{EmailColumn}); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	errs := NewErrorCollection(p.maxErrors)
	seen := make(map[string]int)
	result := &Result{}

	for {
		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs.Add(RowError{Row: parser.CurrentRow(), Code: ErrCodeMalformedRow, Message: err.Error()})
			continue
		}
		if row.IsEmpty() {
			continue
		}

		result.TotalRows++
		if result.TotalRows > p.maxRows {
			return nil, ErrTooManyRows
		}

		email := row.Get(EmailColumn)
		if email == "" {
			errs.AddRequiredError(row.LineNumber, EmailColumn)
			continue
		}
		if p.validate.Var(email, "email") != nil {
			errs.AddFormatError(row.LineNumber, EmailColumn, "email address", email)
			continue
		}
		key := strings.ToLower(email)
		if first, dup := seen[key]; dup {
			errs.Add(RowError{
				Row:     row.LineNumber,
				Column:  EmailColumn,
				Code:    ErrCodeDuplicate,
				Message: "duplicate of row " + strconv.Itoa(first),
				Value:   email,
			})
			continue
		}
		seen[key] = row.LineNumber

		result.Leads = append(result.Leads, LeadRow{
			LineNumber: row.LineNumber,
			Email:      email,
			Fields:     row.Data,
		})
	}

	result.Errors = errs.Errors()
	result.TotalErrors = errs.TotalCount()
	result.IsTruncated = errs.IsTruncated()
	if len(result.Leads) == 0 {
		if result.TotalRows == 0 {
			return nil, ErrNoDataRows
		}
		return result, ErrNoDataRows
	}
	return result, nil
}
