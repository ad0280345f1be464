package integration

import (
	"bytes"
	"testing"

	"cropdata/internal/models"
	"cropdata/internal/normalizer"
	"cropdata/internal/table"
)

func TestNormalizer_GISTEMP(t *testing.T) {
	raw, err := table.ReadCSV(bytes.NewReader(readFixture(t, "GLB.Ts+dSST.csv")), table.ReadOptions{SkipLines: 1})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	anom, report, err := normalizer.NewProcessor(normalizer.DefaultAnnualColumn).Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := []models.AnomalyRow{
		{Year: 1960, Anomaly: -0.07},
		{Year: 1961, Anomaly: 0.04},
		{Year: 2019, Anomaly: 0.98},
		{Year: 2020, Anomaly: 1.02},
	}

	if len(anom.Rows) != len(want) {
		t.Fatalf("Expected %d rows, got %+v", len(want), anom.Rows)
	}

	for i := range want {
		if anom.Rows[i] != want[i] {
			t.Errorf("Row %d: expected %+v, got %+v", i, want[i], anom.Rows[i])
		}
	}

	// The partial 2025 row has no annual mean yet.
	if report.Count(models.SkipMalformedValue) != 1 {
		t.Errorf("Expected 1 malformed row, got %d", report.Count(models.SkipMalformedValue))
	}
}

func TestNormalizer_TitleLineNotSkipped(t *testing.T) {
	raw, err := table.ReadCSV(bytes.NewReader(readFixture(t, "GLB.Ts+dSST.csv")), table.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if _, _, err := normalizer.NewProcessor("").Process(raw); err == nil {
		t.Error("Expected a missing column error when the title line is read as header")
	}
}
