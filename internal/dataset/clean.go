package dataset

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// missingMarkers are read as missing values, matching common CSV tooling.
var missingMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(v string) bool {
	_, ok := missingMarkers[v]
	return ok
}

// ParseOptional coerces a raw cell to a number. Missing markers and values that
// do not parse as a finite number yield an absent Optional, never zero.
func ParseOptional(v string) Optional {
	if isMissing(v) {
		return Optional{}
	}
	v = strings.TrimSpace(v)
	if hasHexPrefix(v) {
		return Optional{}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Optional{}
	}
	return Some(f)
}

// hasHexPrefix reports a 0x/0X literal, optionally signed, which ParseFloat
// would accept but registry tooling treats as text.
func hasHexPrefix(v string) bool {
	v = strings.TrimLeft(v, "+-")
	return len(v) >= 2 && v[0] == '0' && (v[1] == 'x' || v[1] == 'X')
}

// Load reads and cleans the source at path. Failures are returned as *LoadError.
func Load(path string, opt Options) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, unavailable(path, err)
	}
	return Read(path, data, opt)
}

// Read parses and cleans an in-memory source; name selects the format by extension.
func Read(name string, data []byte, opt Options) (t *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, unavailable(name, fmt.Errorf("unexpected failure: %v", r))
		}
	}()
	raw, err := Parse(name, data, opt)
	if err != nil {
		return nil, unavailable(name, err)
	}
	t, err = Clean(raw, opt)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.Path == "" {
			le.Path = name
		}
		return nil, err
	}
	return t, nil
}

// Clean turns a raw table into a Table: trade-name fill, capacity coercion,
// region filter, identifier normalization, global missing fill and exact
// duplicate removal, in that order.
func Clean(raw *Raw, opt Options) (*Table, error) {
	if raw == nil {
		return nil, unavailable("", ErrEmptySource)
	}
	opt = opt.WithDefaults()

	t := &Table{
		Columns: make([]string, len(raw.Header)),
		numeric: make([]bool, len(raw.Header)),
	}
	index := make(map[string]int, len(raw.Header))
	// Repeated identifiers keep their first index; only a required one is ambiguous.
	repeated := map[string]bool{}
	for i, h := range raw.Header {
		id := NormalizeIdentifier(h)
		t.Columns[i] = id
		if _, dup := index[id]; dup {
			repeated[id] = true
			continue
		}
		index[id] = i
	}

	var missing, ambiguous []string
	resolve := func(name string) int {
		id := NormalizeIdentifier(name)
		i, ok := index[id]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		if repeated[id] {
			ambiguous = append(ambiguous, name)
		}
		return i
	}
	s := opt.Schema
	t.cols = layout{
		region:   resolve(s.Region),
		name:     resolve(s.TradeName),
		category: resolve(s.Category),
		locality: resolve(s.Locality),
	}
	t.cols.capacity[Rooms] = resolve(s.Rooms)
	t.cols.capacity[Beds] = resolve(s.Beds)
	t.cols.capacity[Employees] = resolve(s.Employees)
	if len(missing) > 0 {
		return nil, mismatch(fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", ")))
	}
	if len(ambiguous) > 0 {
		return nil, mismatch(fmt.Errorf("duplicate required column(s): %s", strings.Join(ambiguous, ", ")))
	}
	for _, c := range t.cols.capacity {
		t.numeric[c] = true
	}

	seen := make(map[string]struct{}, len(raw.Rows))
	var key strings.Builder
	for _, rec := range raw.Rows {
		if region := rec[t.cols.region]; isMissing(region) || region != opt.Region {
			continue
		}
		row := make(Row, len(rec))
		for j, v := range rec {
			switch {
			case t.numeric[j]:
				row[j].Number = ParseOptional(v)
			case isMissing(v) && j == t.cols.name:
				row[j].Text = UnknownName
			case isMissing(v):
				row[j].Text = NotAvailable
			default:
				row[j].Text = v
			}
		}
		key.Reset()
		writeRowKey(&key, row, t.numeric)
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// writeRowKey encodes a row unambiguously so equal keys mean field-for-field equal rows.
func writeRowKey(b *strings.Builder, row Row, numeric []bool) {
	for j, f := range row {
		if numeric[j] {
			if f.Number.Valid {
				v := f.Number.Value
				if v == 0 {
					v = 0 // -0 and 0 are the same value
				}
				b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			}
			b.WriteByte(0)
			continue
		}
		b.WriteString(strconv.Itoa(len(f.Text)))
		b.WriteByte(':')
		b.WriteString(f.Text)
	}
}
