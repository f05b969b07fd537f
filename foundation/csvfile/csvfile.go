// Package csvfile reads header indexed csv files one row at a time
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// RowReader is fed each row of a csv file by ReadRows
type RowReader interface {
	// AddRow reads the current line from Parser
	AddRow(parser *Parser) error
}

// RowReaderFunc adapts a function to RowReader
type RowReaderFunc func(parser *Parser) error

// AddRow implements RowReader
func (f RowReaderFunc) AddRow(parser *Parser) error {
	return f(parser)
}

// Parser holds information about a csv file. Methods read columns for the current record by header name.
// Errors while extracting values are collected and reported together with the line number by Err.
type Parser struct {
	Filename       string
	line           int
	csvReader      *csv.Reader
	headers        []string
	currentRecords []string
	errors         []error
}

// NewParser creates a Parser from r, reading the header line immediately
func NewParser(r io.Reader, filename string) (*Parser, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to load header in %s file: %w", filename, err)
	}
	removeBOMIfPresent(headers)
	for i, header := range headers {
		headers[i] = strings.TrimSpace(header)
	}
	return &Parser{
		Filename:       filename,
		line:           1,
		csvReader:      csvReader,
		headers:        headers,
		currentRecords: headers,
	}, nil
}

func removeBOMIfPresent(headers []string) {
	if len(headers) < 1 {
		return
	}
	headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
}

// HasColumn reports whether the file has a header named name
func (p *Parser) HasColumn(name string) bool {
	return indexOf(name, p.headers) >= 0
}

// GetString retrieves string
// returns empty string if missing
func (p *Parser) GetString(name string, optional bool) string {
	result := p.GetStringPointer(name, optional)
	if result == nil {
		return ""
	}
	return *result
}

// GetStringPointer retrieves string pointer
// returns nil if missing
func (p *Parser) GetStringPointer(name string, optional bool) *string {
	result, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
	}
	return result
}

// GetFloat64 retrieves float64
// returns 0 if missing.
func (p *Parser) GetFloat64(name string, optional bool) float64 {
	result := p.GetFloat64Pointer(name, optional)
	if result == nil {
		return 0
	}
	return *result
}

// GetFloat64Pointer retrieves float64 pointer
// returns nil if missing.
func (p *Parser) GetFloat64Pointer(name string, optional bool) *float64 {
	value, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil
	}
	if value == nil || len(*value) == 0 {
		return nil
	}
	result, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		p.errors = append(p.errors, csvError(name, err))
		return nil
	}
	return &result
}

// GetInt retrieves int
// returns 0 if missing.
func (p *Parser) GetInt(name string, optional bool) int {
	value, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return 0
	}
	if value == nil || len(*value) == 0 {
		return 0
	}
	result, err := strconv.Atoi(*value)
	if err != nil {
		p.errors = append(p.errors, csvError(name, err))
		return 0
	}
	return result
}

// GetTime retrieves a timestamp, trying each layout in order. Values are interpreted in location.
// returns zero time.Time if missing
func (p *Parser) GetTime(name string, optional bool, location *time.Location, layouts ...string) time.Time {
	value, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return time.Time{}
	}
	if value == nil || len(*value) == 0 {
		return time.Time{}
	}
	for _, layout := range layouts {
		result, err := time.ParseInLocation(layout, *value, location)
		if err == nil {
			return result
		}
	}
	p.errors = append(p.errors, fmt.Errorf("unable to parse column %s, unrecognized time %q", name, *value))
	return time.Time{}
}

// Err returns the errors encountered while reading the current line, if any
func (p *Parser) Err() error {
	if len(p.errors) > 0 {
		return fmt.Errorf("in file %v, line %v: %v", p.Filename, p.line, p.errors)
	}
	return nil
}

// AddParseError appends error to list of parsing errors encountered on the current line
func (p *Parser) AddParseError(err error) {
	p.errors = append(p.errors, err)
}

// NextLine moves the csv reader one line forward, returns io.EOF at the end of the file
func (p *Parser) NextLine() error {
	var err error
	p.currentRecords, err = p.csvReader.Read()
	p.line += 1
	p.errors = nil
	return err
}

// ReadRows iterates over all rows in Parser and feeds them into rowReader.
// reading halts if an error occurs and the error is returned
func ReadRows(parser *Parser, rowReader RowReader) error {
	for {
		err := parser.NextLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("in file %v, line %v: %w", parser.Filename, parser.line, err)
		}
		err = rowReader.AddRow(parser)
		if err != nil {
			parser.AddParseError(err)
			return parser.Err()
		}
		if err = parser.Err(); err != nil {
			return err
		}
	}
}

// find index of elements that matches name string. returns -1 if not found
func indexOf(name string, elements []string) int {
	for i, value := range elements {
		if name == value {
			return i
		}
	}
	return -1
}

// findValue retrieves trimmed string value from csv records
// returns nil if record isn't present and optional is true
func findValue(name string, records []string, headers []string, optional bool) (*string, error) {
	index := indexOf(name, headers)
	if index < 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to find header: %s", name)
	}
	if len(records) <= index {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("records are too short to find header at %v named %s", index, name)
	}
	value := strings.TrimSpace(records[index])
	if len(value) == 0 && !optional {
		return nil, fmt.Errorf("missing required value in column %v", name)
	}
	return &value, nil
}

// csvError convenience method for formatting a column error
func csvError(name string, err error) error {
	return fmt.Errorf("unable to parse column %s, error: %v", name, err)
}
