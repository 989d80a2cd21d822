package analysis

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/rntrec/internal/dataset"
)

const header = "DEPARTAMENTO,RAZON_SOCIAL_ESTABLECIMIENTO,CATEGORIA,MUNICIPIO,NUMERO_DE_EMPLEADOS,NUMERO_DE_CAMAS,NUMERO_DE_HABITACIONES\n"

func loadTable(t *testing.T, rows ...string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.Read("fixture.csv", []byte(header+strings.Join(rows, "\n")), dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return tbl
}

func TestTopCategoriesTieBreak(t *testing.T) {
	tbl := loadTable(t,
		"QUINDIO,Uno,A,Armenia,,,",
		"QUINDIO,Dos,A,Armenia,,,",
		"QUINDIO,Tres,B,Salento,,,",
		"QUINDIO,Cuatro,C,Salento,,,",
		"QUINDIO,Cinco,A,Filandia,,,",
	)
	got := TopCategories(tbl, 2)
	want := []CategoryCount{{Value: "A", Count: 3}, {Value: "B", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TopCategories = %#v, want %#v", got, want)
	}
	all := TopLocalities(tbl, 0)
	wantLoc := []CategoryCount{{"Armenia", 2}, {"Salento", 2}, {"Filandia", 1}}
	if !reflect.DeepEqual(all, wantLoc) {
		t.Fatalf("TopLocalities = %#v, want %#v", all, wantLoc)
	}
}

func TestSummaryStatsSkipsMissing(t *testing.T) {
	tbl := loadTable(t,
		"QUINDIO,Uno,Hotel,Armenia,1,,10",
		"QUINDIO,Dos,Hotel,Armenia,2,,n/a",
		"QUINDIO,Tres,Hotel,Armenia,3,,20",
	)
	stats := SummaryStats(tbl)
	if len(stats) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(stats))
	}
	if stats[0].Label != "rooms" || stats[1].Label != "beds" || stats[2].Label != "employees" {
		t.Fatalf("unexpected order: %s, %s, %s", stats[0].Label, stats[1].Label, stats[2].Label)
	}
	rooms := stats[0]
	if rooms.Column != "numero_de_habitaciones" {
		t.Fatalf("rooms column = %q", rooms.Column)
	}
	if !rooms.Valid || rooms.Count != 2 || rooms.Mean != 15 || rooms.Median != 15 || rooms.Min != 10 || rooms.Max != 20 {
		t.Fatalf("rooms summary = %#v", rooms)
	}
	if math.Abs(rooms.Std-math.Sqrt(50)) > 1e-9 {
		t.Fatalf("rooms std = %f, want %f", rooms.Std, math.Sqrt(50))
	}
	if beds := stats[1]; beds.Valid || beds.Count != 0 {
		t.Fatalf("beds should have no valid values: %#v", beds)
	}
	if emp := stats[2]; emp.Median != 2 || emp.Std != 1 {
		t.Fatalf("employees summary = %#v", emp)
	}
}

func TestSingleValueStdIsZero(t *testing.T) {
	tbl := loadTable(t, "QUINDIO,Uno,Hotel,Armenia,7,,")
	emp := SummaryStats(tbl)[2]
	if !emp.Valid || emp.Count != 1 || emp.Std != 0 || emp.Median != 7 {
		t.Fatalf("single value summary = %#v", emp)
	}
}

func TestCardinalities(t *testing.T) {
	tbl := loadTable(t,
		"QUINDIO,Uno,Hotel,Armenia,,,",
		"QUINDIO,Dos,Finca,Armenia,,,",
		"QUINDIO,Tres,Hotel,Salento,,,",
		"CALDAS,Cuatro,Bar,Manizales,,,",
	)
	got := Cardinalities(tbl)
	if got != (Cardinality{Rows: 3, Localities: 2, Categories: 2}) {
		t.Fatalf("Cardinalities = %#v", got)
	}
}

func TestEmptyTable(t *testing.T) {
	tbl := loadTable(t, "CALDAS,Uno,Hotel,Manizales,1,2,3")
	if tbl.Len() != 0 {
		t.Fatalf("fixture should filter everything out")
	}
	rep := Build(tbl, DefaultOptions())
	if rep.Cardinality.Rows != 0 || len(rep.Categories) != 0 || len(rep.Localities) != 0 {
		t.Fatalf("unexpected report for empty table: %#v", rep)
	}
	for _, s := range rep.Stats {
		if s.Valid {
			t.Fatalf("empty table produced a valid summary: %#v", s)
		}
	}
}

func TestReportMarkdown(t *testing.T) {
	tbl := loadTable(t,
		"QUINDIO,Uno,Hotel,Armenia,1,2,3",
		"QUINDIO,Dos,Finca|Rural,Salento,,,",
	)
	opt := DefaultOptions()
	opt.Name = "rnt.csv"
	md := Build(tbl, opt).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: rnt.csv",
		"Establishments: 2",
		"[TOP CATEGORIES]",
		"| Finca/Rural | 1 |",
		"[TOP LOCALITIES]",
		"[CAPACITY]",
		"rooms (numero_de_habitaciones): n=1",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestReportMarkdownLargeValues(t *testing.T) {
	tbl := loadTable(t,
		"QUINDIO,Uno,Hotel,Armenia,1,2,120000",
		"QUINDIO,Dos,Hotel,Salento,1,2,130000",
	)
	md := Build(tbl, DefaultOptions()).Markdown()
	want := "rooms (numero_de_habitaciones): n=2, mean 125000.00, median 125000.00, std 7071.07, min 120000, max 130000"
	if !strings.Contains(md, want) {
		t.Fatalf("markdown missing %q:\n%s", want, md)
	}
	if strings.Contains(md, "e+") {
		t.Fatalf("markdown uses scientific notation:\n%s", md)
	}
}
