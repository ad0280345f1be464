package wdi

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"cropdata/internal/models"
	"cropdata/internal/table"
)

const wideFixture = `Country Name,Country Code,Indicator Name,Indicator Code,1999,2000,n/a,Unnamed: 5
United States,USA,GDP per capita,NY.GDP.PCAP.CD,4900,5000,x,
United States,USA,Population,SP.POP.TOTL,,282000000,,
United States,USA,Something else,XX.UNKNOWN,1,2,,
Aruba,ABW,GDP per capita,NY.GDP.PCAP.CD,..,20000,,
Aruba,ABW,Population,SP.POP.TOTL,,,,
`

func testCatalog() models.Catalog {
	return models.Catalog{
		{Code: "SP.POP.TOTL", Name: "population"},
		{Code: "NY.GDP.PCAP.CD", Name: "gdp_per_capita"},
		{Code: "AG.YLD.CREL.KG", Name: "cereal_yield"},
	}
}

func mustTable(t *testing.T, csv string) *table.Table {
	t.Helper()

	tbl, err := table.ReadCSV(strings.NewReader(csv), table.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	return tbl
}

func TestExtract(t *testing.T) {
	e := NewExtractor(testCatalog(), PolicyFirst)

	tidy, report, err := e.Extract(mustTable(t, wideFixture))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	wantIndicators := []string{"population", "gdp_per_capita"}
	if strings.Join(tidy.Indicators, ",") != strings.Join(wantIndicators, ",") {
		t.Errorf("Indicators = %v, want %v", tidy.Indicators, wantIndicators)
	}

	got := tidy.Table()

	want := [][]string{
		{"United States", "USA", "1999", "", "4900"},
		{"United States", "USA", "2000", "282000000", "5000"},
		{"Aruba", "ABW", "2000", "", "20000"},
	}

	if len(got.Rows) != len(want) {
		t.Fatalf("rows = %v, want %v", got.Rows, want)
	}

	for i := range want {
		if strings.Join(got.Rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, got.Rows[i], want[i])
		}
	}

	if report.Count(models.SkipUnknownIndicator) != 1 {
		t.Errorf("unknown indicator skips = %d, want 1", report.Count(models.SkipUnknownIndicator))
	}

	if report.Count(models.SkipMalformedValue) != 1 {
		t.Errorf("malformed skips = %d, want 1", report.Count(models.SkipMalformedValue))
	}

	// Indicator Name is an identifying column, not a dropped year.
	if strings.Join(report.DroppedColumns, ",") != "n/a,Unnamed: 5" {
		t.Errorf("DroppedColumns = %v", report.DroppedColumns)
	}

	if len(report.MissingIndicators) != 1 || report.MissingIndicators[0] != "cereal_yield" {
		t.Errorf("MissingIndicators = %v", report.MissingIndicators)
	}

	if report.RowsRead != 5 || report.RowsOut != 3 || report.CellsKept != 4 {
		t.Errorf("report counters = read %d out %d kept %d", report.RowsRead, report.RowsOut, report.CellsKept)
	}
}

func TestExtract_OnlyCatalogColumns(t *testing.T) {
	e := NewExtractor(models.Catalog{{Code: "NY.GDP.PCAP.CD", Name: "gdp_per_capita"}}, "")

	tidy, _, err := e.Extract(mustTable(t, wideFixture))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	header := strings.Join(tidy.Header(), ",")
	if header != "Country Name,Country Code,year,gdp_per_capita" {
		t.Errorf("header = %s", header)
	}

	type key struct {
		code string
		year int
	}

	seen := make(map[key]bool)

	for _, r := range tidy.Rows {
		k := key{r.CountryCode, r.Year}
		if seen[k] {
			t.Errorf("duplicate key %s %d", r.CountryCode, r.Year)
		}

		seen[k] = true
	}
}

func TestExtract_YearLabels(t *testing.T) {
	wide := mustTable(t, "Country Name,Country Code,Indicator Code,n/a,Unnamed: 5,1992\nUS,USA,A,1,2,3\n")

	tidy, report, err := NewExtractor(models.Catalog{{Code: "A", Name: "a"}}, "").Extract(wide)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(tidy.Rows) != 1 || tidy.Rows[0].Year != 1992 || tidy.Rows[0].Values[0] != models.Some(3) {
		t.Errorf("rows = %+v", tidy.Rows)
	}

	if strings.Join(report.DroppedColumns, ",") != "n/a,Unnamed: 5" {
		t.Errorf("DroppedColumns = %v", report.DroppedColumns)
	}
}

func TestExtract_NotFound(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"No catalog rows", "Country Name,Country Code,Indicator Code,2000\nUS,USA,ZZ,1\n"},
		{"Empty table", "Country Name,Country Code,Indicator Code,2000\n"},
		{"Missing column", "Country Name,Indicator Code,2000\nUS,SP.POP.TOTL,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewExtractor(testCatalog(), "").Extract(mustTable(t, tt.csv))
			if !errors.Is(err, models.ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestExtract_InvalidCatalog(t *testing.T) {
	_, _, err := NewExtractor(models.Catalog{}, "").Extract(mustTable(t, wideFixture))
	if !errors.Is(err, models.ErrEmptyCatalog) {
		t.Errorf("error = %v, want ErrEmptyCatalog", err)
	}
}

const duplicateFixture = `Country Name,Country Code,Indicator Code,2000
US,USA,A,1
US,USA,A,3
`

func TestExtract_DuplicatePolicies(t *testing.T) {
	tests := []struct {
		policy DuplicatePolicy
		want   float64
	}{
		{PolicyFirst, 1},
		{PolicyLast, 3},
		{PolicyMean, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			tidy, report, err := NewExtractor(models.Catalog{{Code: "A", Name: "a"}}, tt.policy).Extract(mustTable(t, duplicateFixture))
			if err != nil {
				t.Fatalf("Extract returned error: %v", err)
			}

			if len(tidy.Rows) != 1 {
				t.Fatalf("rows = %+v, want one row", tidy.Rows)
			}

			if got := tidy.Rows[0].Values[0]; got != models.Some(tt.want) {
				t.Errorf("value = %+v, want %v", got, tt.want)
			}

			if report.Count(models.SkipDuplicate) != 1 {
				t.Errorf("duplicate skips = %d, want 1", report.Count(models.SkipDuplicate))
			}
		})
	}

	t.Run("error", func(t *testing.T) {
		_, _, err := NewExtractor(models.Catalog{{Code: "A", Name: "a"}}, PolicyError).Extract(mustTable(t, duplicateFixture))
		if !errors.Is(err, ErrDuplicateKey) {
			t.Errorf("error = %v, want ErrDuplicateKey", err)
		}
	})
}

func TestExtract_NameConflictKeepsOneRow(t *testing.T) {
	wide := mustTable(t, "Country Name,Country Code,Indicator Code,2000\nUS,USA,A,1\nUnited States,USA,B,2\n")

	tidy, report, err := NewExtractor(models.Catalog{{Code: "A", Name: "a"}, {Code: "B", Name: "b"}}, "").Extract(wide)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(tidy.Rows) != 1 || tidy.Rows[0].CountryName != "US" {
		t.Errorf("rows = %+v", tidy.Rows)
	}

	if report.Count(models.SkipNameConflict) != 1 {
		t.Errorf("name conflicts = %d, want 1", report.Count(models.SkipNameConflict))
	}
}

func TestExtract_Idempotent(t *testing.T) {
	e := NewExtractor(testCatalog(), PolicyMean)

	render := func() string {
		tidy, _, err := e.Extract(mustTable(t, wideFixture))
		if err != nil {
			t.Fatalf("Extract returned error: %v", err)
		}

		var buf bytes.Buffer
		if err := tidy.Table().WriteCSV(&buf); err != nil {
			t.Fatal(err)
		}

		return buf.String()
	}

	first, second := render(), render()
	if first != second {
		t.Errorf("outputs differ:\n%s\n---\n%s", first, second)
	}
}

func TestParseYearLabel(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1992", 1992, true},
		{"0", 0, true},
		{"n/a", 0, false},
		{"Unnamed: 5", 0, false},
		{" 1992", 0, false},
		{"-5", 0, false},
		{"1992.0", 0, false},
		{"", 0, false},
		{"99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseYearLabel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseYearLabel(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	for _, in := range []string{"", "first", "LAST", " mean ", "error"} {
		if _, err := ParseDuplicatePolicy(in); err != nil {
			t.Errorf("ParseDuplicatePolicy(%q) returned error: %v", in, err)
		}
	}

	if p, _ := ParseDuplicatePolicy(""); p != PolicyFirst {
		t.Errorf("default policy = %q, want first", p)
	}

	if _, err := ParseDuplicatePolicy("median"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("error = %v, want ErrUnknownPolicy", err)
	}
}
