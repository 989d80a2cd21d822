package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Raw is a parsed but uncleaned source: a header and rows padded to its width.
type Raw struct {
	Header []string
	Rows   [][]string
}

// Reader parses one source format into a Raw table.
type Reader interface {
	CanRead(name string) bool
	Read(data []byte, opt Options) (*Raw, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrEmptySource indicates a source without a header row.
var ErrEmptySource = errors.New("source has no header row")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse selects a reader by file name and parses data. Unknown extensions are
// read as CSV.
func Parse(name string, data []byte, opt Options) (*Raw, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(name)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	for _, r := range registry {
		if r.CanRead(name) {
			return r.Read(data, opt)
		}
	}
	return csvReader{}.Read(data, opt)
}

func init() {
	Register(xlsxReader{})
	Register(csvReader{})
}

func sniffDelimiter(name string) rune {
	if strings.EqualFold(filepath.Ext(name), ".tsv") {
		return '\t'
	}
	return ','
}

type csvReader struct{}

func (csvReader) CanRead(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return true
	}
	return false
}

func (csvReader) Read(data []byte, opt Options) (*Raw, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = opt.Delimiter
	if r.Comma == 0 {
		r.Comma = ','
	}
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySource
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	raw := &Raw{Header: cleanHeader(header)}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		row, err := fitRow(rec, len(raw.Header), line)
		if err != nil {
			return nil, err
		}
		raw.Rows = append(raw.Rows, row)
	}
	return raw, nil
}

type xlsxReader struct{}

func (xlsxReader) CanRead(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

func (xlsxReader) Read(data []byte, opt Options) (*Raw, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySource
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySource
	}
	raw := &Raw{Header: cleanHeader(rows[0])}
	for i, rec := range rows[1:] {
		row, err := fitRow(rec, len(raw.Header), i+2)
		if err != nil {
			return nil, err
		}
		raw.Rows = append(raw.Rows, row)
	}
	return raw, nil
}

func cleanHeader(h []string) []string {
	out := make([]string, len(h))
	copy(out, h)
	if len(out) > 0 {
		out[0] = strings.TrimPrefix(out[0], "\ufeff")
	}
	return out
}

// fitRow pads short rows with empty (missing) cells and rejects rows wider than the header.
func fitRow(rec []string, width, line int) ([]string, error) {
	if len(rec) > width {
		return nil, fmt.Errorf("row %d has %d fields, header has %d", line, len(rec), width)
	}
	row := make([]string, width)
	copy(row, rec)
	return row, nil
}
