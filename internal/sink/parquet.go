package sink

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"cropdata/internal/models"
	"cropdata/internal/table"
)

// Schema returns the Arrow schema of a merged table. Identifying columns are
// required; indicator and anomaly columns are nullable.
func Schema(indicators []string) *arrow.Schema {
	fields := []arrow.Field{
		{Name: models.ColRunID, Type: arrow.BinaryTypes.String},
		{Name: models.ColCountryName, Type: arrow.BinaryTypes.String},
		{Name: models.ColCountryCode, Type: arrow.BinaryTypes.String},
		{Name: models.ColYear, Type: arrow.PrimitiveTypes.Int64},
	}

	for _, name := range indicators {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}

	fields = append(fields, arrow.Field{Name: models.ColTempAnomaly, Type: arrow.PrimitiveTypes.Float64, Nullable: true})

	return arrow.NewSchema(fields, nil)
}

// BuildRecord converts t into a single Arrow record. The caller releases it.
func BuildRecord(mem memory.Allocator, runID string, t *models.MergedTable) arrow.Record {
	b := array.NewRecordBuilder(mem, Schema(t.Indicators))
	defer b.Release()

	runIDs := b.Field(0).(*array.StringBuilder)
	names := b.Field(1).(*array.StringBuilder)
	codes := b.Field(2).(*array.StringBuilder)
	years := b.Field(3).(*array.Int64Builder)

	for _, r := range t.Rows {
		runIDs.Append(runID)
		names.Append(r.CountryName)
		codes.Append(r.CountryCode)
		years.Append(int64(r.Year))

		for i, v := range r.Values {
			appendValue(b.Field(4+i).(*array.Float64Builder), v)
		}

		appendValue(b.Field(4+len(t.Indicators)).(*array.Float64Builder), r.Anomaly)
	}

	return b.NewRecord()
}

func appendValue(fb *array.Float64Builder, v models.Value) {
	if v.Valid {
		fb.Append(v.Float)
	} else {
		fb.AppendNull()
	}
}

// WriteParquet writes t to w as Snappy-compressed Parquet.
func WriteParquet(w io.Writer, runID string, t *models.MergedTable) error {
	rec := BuildRecord(memory.DefaultAllocator, runID, t)
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.Write(rec); err != nil {
		_ = writer.Close()

		return fmt.Errorf("failed to write parquet record: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	return nil
}

// SaveParquet writes t to path atomically.
func SaveParquet(path, runID string, t *models.MergedTable) error {
	return table.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteParquet(w, runID, t)
	})
}
