package dataset

import "strings"

// Sentinel values substituted for missing data.
const (
	// UnknownName replaces a missing trade name.
	UnknownName = "UNKNOWN"
	// NotAvailable replaces every other missing value.
	NotAvailable = "not available"
)

// DefaultRegion is the region kept by the cleaner when none is configured.
const DefaultRegion = "QUINDIO"

// DefaultSource is the registry export the tool expects in the working directory.
const DefaultSource = "Registro_Nacional_de_Turismo_-_RNT_20251016.csv"

// Schema names the source columns the cleaner relies on. Names are compared
// after identifier normalization, so "NUMERO DE CAMAS" and "numero_de_camas"
// address the same column.
type Schema struct {
	Region    string
	TradeName string
	Category  string
	Locality  string
	Employees string
	Beds      string
	Rooms     string
}

// DefaultSchema returns the column names of the RNT registry export.
func DefaultSchema() Schema {
	return Schema{
		Region:    "DEPARTAMENTO",
		TradeName: "RAZON_SOCIAL_ESTABLECIMIENTO",
		Category:  "CATEGORIA",
		Locality:  "MUNICIPIO",
		Employees: "NUMERO_DE_EMPLEADOS",
		Beds:      "NUMERO_DE_CAMAS",
		Rooms:     "NUMERO_DE_HABITACIONES",
	}
}

// Options controls how a source is parsed and cleaned.
type Options struct {
	// Region is the exact, case-sensitive region value rows must carry.
	Region string
	Schema Schema
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Sheet selects the XLSX worksheet; empty means the first sheet.
	Sheet string
}

// DefaultOptions returns the options used for the RNT registry export.
func DefaultOptions() Options {
	return Options{Region: DefaultRegion, Schema: DefaultSchema()}
}

// WithDefaults fills an empty region and empty schema names with the defaults.
func (o Options) WithDefaults() Options {
	def := DefaultSchema()
	if o.Region == "" {
		o.Region = DefaultRegion
	}
	s := &o.Schema
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&s.Region, def.Region},
		{&s.TradeName, def.TradeName},
		{&s.Category, def.Category},
		{&s.Locality, def.Locality},
		{&s.Employees, def.Employees},
		{&s.Beds, def.Beds},
		{&s.Rooms, def.Rooms},
	} {
		if strings.TrimSpace(*f.dst) == "" {
			*f.dst = f.val
		}
	}
	return o
}

// NormalizeIdentifier trims, lowercases and replaces spaces with underscores.
// It applies to column identifiers only, never to data.
func NormalizeIdentifier(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Capacity identifies one of the numeric capacity columns.
type Capacity int

const (
	Rooms Capacity = iota
	Beds
	Employees
)

// Capacities lists the capacity columns in report order.
var Capacities = []Capacity{Rooms, Beds, Employees}

func (c Capacity) String() string {
	switch c {
	case Rooms:
		return "rooms"
	case Beds:
		return "beds"
	case Employees:
		return "employees"
	default:
		return "unknown"
	}
}
