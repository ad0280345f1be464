package table

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffCountry Name, Country Code ,2000\nAruba,ABW,1.5\nShort,SRT\n"

	tbl, err := ReadCSV(strings.NewReader(input), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}

	wantHeader := []string{"Country Name", "Country Code", "2000"}
	for i, h := range wantHeader {
		if tbl.Header[i] != h {
			t.Errorf("Header[%d] = %q, want %q", i, tbl.Header[i], h)
		}
	}

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}

	if got := tbl.Cell(1, 2); got != "" {
		t.Errorf("short row cell = %q, want empty", got)
	}
}

func TestReadCSV_SkipLines(t *testing.T) {
	input := "Land-Ocean: Global Means\nYear,J-D\n2020,1.02\n"

	tbl, err := ReadCSV(strings.NewReader(input), ReadOptions{SkipLines: 1})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}

	if tbl.Header[0] != "Year" || tbl.Header[1] != "J-D" {
		t.Errorf("Header = %v, want [Year J-D]", tbl.Header)
	}

	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestReadCSV_Empty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader(""), ReadOptions{}); err == nil {
		t.Error("expected error for empty input")
	}

	if _, err := ReadCSV(strings.NewReader("title only"), ReadOptions{SkipLines: 1}); err == nil {
		t.Error("expected error when skipped lines exhaust input")
	}
}

func TestIndices(t *testing.T) {
	tbl := New("a", "b", "c")

	idx, err := tbl.Indices("c", "a")
	if err != nil {
		t.Fatalf("Indices returned error: %v", err)
	}

	if idx[0] != 2 || idx[1] != 0 {
		t.Errorf("Indices = %v, want [2 0]", idx)
	}

	_, err = tbl.Indices("a", "missing")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("error = %v, want ErrColumnNotFound", err)
	}

	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error %q does not name the column", err)
	}
}

func TestHead(t *testing.T) {
	tbl := New("x")
	tbl.Append("1")
	tbl.Append("2")
	tbl.Append("3")

	if got := tbl.Head(2).Len(); got != 2 {
		t.Errorf("Head(2).Len() = %d, want 2", got)
	}

	if got := tbl.Head(10).Len(); got != 3 {
		t.Errorf("Head(10).Len() = %d, want 3", got)
	}

	if got := tbl.Head(-1).Len(); got != 0 {
		t.Errorf("Head(-1).Len() = %d, want 0", got)
	}
}

func TestSaveFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")

	tbl := New("name", "note")
	tbl.Append("Côte d'Ivoire", "has, comma")

	if err := tbl.SaveFile(path); err != nil {
		t.Fatalf("SaveFile returned error: %v", err)
	}

	got, err := LoadFile(path, ReadOptions{})
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if got.Cell(0, 0) != "Côte d'Ivoire" || got.Cell(0, 1) != "has, comma" {
		t.Errorf("round trip row = %v", got.Rows[0])
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 1 {
		t.Errorf("expected only the target file in dir, found %d entries", len(entries))
	}
}

func TestWriteFileAtomic_FailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	if err := os.WriteFile(path, []byte("previous\n"), 0644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != "previous\n" {
		t.Errorf("previous content replaced: %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestWriteCSV(t *testing.T) {
	tbl := New("year", "temp_anomaly")
	tbl.Append("2020", "1.02")

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	if got, want := buf.String(), "year,temp_anomaly\n2020,1.02\n"; got != want {
		t.Errorf("WriteCSV = %q, want %q", got, want)
	}
}
