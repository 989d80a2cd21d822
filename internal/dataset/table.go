package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Optional is a number that may be absent. Absent values render as NotAvailable.
type Optional struct {
	Value float64
	Valid bool
}

// Some returns a present Optional.
func Some(v float64) Optional { return Optional{Value: v, Valid: true} }

func (o Optional) String() string {
	if !o.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(o.Value, 'f', -1, 64)
}

// Field is one cleaned cell. Capacity columns carry Number, every other column Text.
type Field struct {
	Text   string
	Number Optional
}

// Row is one cleaned record, aligned with Table.Columns.
type Row []Field

// Establishment is the typed view of a row over the schema columns.
type Establishment struct {
	Name      string
	Category  string
	Locality  string
	Region    string
	Employees Optional
	Beds      Optional
	Rooms     Optional
}

type layout struct {
	region, name, category, locality int
	capacity                         [3]int // indexed by Capacity
}

// Table is a cleaned, region-filtered, de-duplicated dataset. It is never
// modified after Clean returns; row i is row/column i of a similarity matrix
// built from it.
type Table struct {
	Columns []string
	Rows    []Row

	numeric []bool
	cols    layout
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Value returns the display text of a cell. Absent numbers render as NotAvailable.
func (t *Table) Value(row, col int) string {
	f := t.Rows[row][col]
	if t.numeric[col] {
		return f.Number.String()
	}
	return f.Text
}

func (t *Table) Name(row int) string     { return t.Rows[row][t.cols.name].Text }
func (t *Table) Category(row int) string { return t.Rows[row][t.cols.category].Text }
func (t *Table) Locality(row int) string { return t.Rows[row][t.cols.locality].Text }
func (t *Table) Region(row int) string   { return t.Rows[row][t.cols.region].Text }

// Capacity returns the numeric capacity value c of a row.
func (t *Table) Capacity(row int, c Capacity) Optional {
	return t.Rows[row][t.cols.capacity[c]].Number
}

// CategoryColumn returns the index of the category column.
func (t *Table) CategoryColumn() int { return t.cols.category }

// LocalityColumn returns the index of the locality column.
func (t *Table) LocalityColumn() int { return t.cols.locality }

// CapacityColumn returns the normalized identifier of capacity column c.
func (t *Table) CapacityColumn(c Capacity) string { return t.Columns[t.cols.capacity[c]] }

// Establishment returns the typed view of a row.
func (t *Table) Establishment(row int) Establishment {
	return Establishment{
		Name:      t.Name(row),
		Category:  t.Category(row),
		Locality:  t.Locality(row),
		Region:    t.Region(row),
		Employees: t.Capacity(row, Employees),
		Beds:      t.Capacity(row, Beds),
		Rooms:     t.Capacity(row, Rooms),
	}
}

// WriteCSV writes the cleaned table with its normalized header. Sentinels are
// written as text, so the output can be loaded and cleaned again.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for i := range t.Rows {
		for j := range rec {
			rec[j] = t.Value(i, j)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
