package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"reviewprep/internal/clean"
	"reviewprep/internal/jsonl"
	"reviewprep/internal/table"
)

// Column types of the cleaned outputs. Columns not listed are strings.
var (
	reviewColumnTypes = map[string]func(any) any{
		"overall":        clean.Float64,
		"verified":       clean.Bool,
		"unixReviewTime": parseDate,
		"vote":           clean.CleanVote,
	}
	metadataColumnTypes = map[string]func(any) any{
		"rank":  clean.Float32,
		"price": clean.Float32,
	}
)

// ReadReviewsCSV loads a cleaned reviews CSV. Empty fields are missing.
func ReadReviewsCSV(path string) (*table.Table, error) {
	t, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	for col, fn := range reviewColumnTypes {
		if t.HasColumn(col) {
			t.Apply(col, fn)
		}
	}
	return t, nil
}

// ReadMetadataJSONL loads a cleaned metadata JSON Lines file.
func ReadMetadataJSONL(path string) (*table.Table, error) {
	t, _, err := jsonl.Load(path, jsonl.LoadOptions{Strict: true})
	if err != nil {
		return nil, err
	}
	for col, fn := range metadataColumnTypes {
		if t.HasColumn(col) {
			t.Apply(col, fn)
		}
	}
	return t, nil
}

// ReadCSV loads a CSV file with a header row as string cells.
func ReadCSV(path string) (*table.Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	t := table.New(headers, nil)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(table.Row, len(headers))
		for i, h := range headers {
			if i < len(rec) && rec[i] != "" {
				row[h] = rec[i]
			} else {
				row[h] = nil
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func parseDate(v any) any {
	s, ok := table.String(v)
	if !ok {
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.DateTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return nil
}
