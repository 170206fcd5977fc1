package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"reviewprep/internal/table"
)

const parquetRowGroupSize = 128 * 1024 * 1024

type reviewRecord struct {
	Overall        *float64 `parquet:"name=overall, type=DOUBLE, repetitiontype=OPTIONAL"`
	Verified       *bool    `parquet:"name=verified, type=BOOLEAN, repetitiontype=OPTIONAL"`
	ReviewerID     *string  `parquet:"name=reviewer_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Asin           *string  `parquet:"name=asin, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY, repetitiontype=OPTIONAL"`
	ReviewText     *string  `parquet:"name=review_text, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Summary        *string  `parquet:"name=summary, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	UnixReviewTime *string  `parquet:"name=unix_review_time, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Vote           *float32 `parquet:"name=vote, type=FLOAT, repetitiontype=OPTIONAL"`
}

// WriteReviewsParquet writes the cleaned review table as a SNAPPY-compressed
// Parquet file with optional columns.
func WriteReviewsParquet(path string, t *table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(reviewRecord), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.RowGroupSize = parquetRowGroupSize
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, r := range t.Rows {
		if err := pw.Write(toReviewRecord(r)); err != nil {
			return fmt.Errorf("write parquet row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return nil
}

func toReviewRecord(r table.Row) reviewRecord {
	rec := reviewRecord{
		ReviewerID: optString(r["reviewerID"]),
		Asin:       optString(r["asin"]),
		ReviewText: optString(r["reviewText"]),
		Summary:    optString(r["summary"]),
	}
	if f, ok := table.Float(r["overall"]); ok {
		rec.Overall = &f
	}
	if b, ok := r["verified"].(bool); ok {
		rec.Verified = &b
	}
	if ts, ok := r["unixReviewTime"].(time.Time); ok {
		s := ts.UTC().Format(time.DateOnly)
		rec.UnixReviewTime = &s
	}
	if f, ok := r["vote"].(float32); ok {
		rec.Vote = &f
	}
	return rec
}

func optString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
