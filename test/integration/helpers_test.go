package integration

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func fixturePath(name string) string {
	return filepath.Join("..", "fixtures", name)
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	content, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	return content
}

// bulkArchive packs the WDI fixture the way the World Bank ships it, next to
// the auxiliary tables that must not be selected.
func bulkArchive(t *testing.T) []byte {
	t.Helper()

	members := []struct{ name, content string }{
		{"WDICountry.csv", "Country Code,Short Name\nCIV,Côte d'Ivoire\n"},
		{"WDISeries.csv", "Series Code,Topic\nSP.POP.TOTL,Health\n"},
		{"WDICSV.csv", string(readFixture(t, "WDICSV.csv"))},
		{"WDIcountry-series.csv", "CountryCode,SeriesCode,DESCRIPTION\n"},
		{"WDIfootnote.csv", "CountryCode,SeriesCode,Year,DESCRIPTION\n"},
		{"WDIseries-time.csv", "SeriesCode,Year,DESCRIPTION\n"},
	}

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, m := range members {
		w, err := zw.Create(m.name)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := w.Write([]byte(m.content)); err != nil {
			t.Fatal(err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}
