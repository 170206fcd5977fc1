// Package export writes the cleaned tables to CSV, JSON Lines, SQLite and
// Parquet, and reads the flat-file outputs back with typed columns.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reviewprep/internal/jsonl"
	"reviewprep/internal/table"
)

// WriteCSV writes t with a header row. Floats keep a trailing ".0" when
// integral and booleans are spelled True/False so the files read the same as
// the pandas exports they replace.
func WriteCSV(path string, t *table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeCSVRecord(w, t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = csvString(r[c])
		}
		if err := writeCSVRecord(w, rec); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// WriteMetadataJSONL writes the cleaned metadata table as JSON Lines records.
func WriteMetadataJSONL(path string, t *table.Table) error {
	return jsonl.Write(path, t)
}

func csvString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return pythonLikeFloatString(t, 64)
	case float32:
		return pythonLikeFloatString(float64(t), 32)
	case time.Time:
		return t.UTC().Format(time.DateOnly)
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func pythonLikeFloatString(f float64, bitSize int) string {
	if math.IsNaN(f) {
		return ""
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		format = 'g'
	}
	s := strconv.FormatFloat(f, format, -1, bitSize)
	if !strings.ContainsAny(s, ".eEn") {
		// Python's str(float) keeps a .0 for integral floats.
		return s + ".0"
	}
	return s
}

func writeCSVRecord(w io.Writer, rec []string) error {
	for i, field := range rec {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if needsCSVQuote(field) {
			if _, err := io.WriteString(w, `"`+strings.ReplaceAll(field, `"`, `""`)+`"`); err != nil {
				return err
			}
			continue
		}
		if _, err := io.WriteString(w, field); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func needsCSVQuote(s string) bool {
	return strings.ContainsAny(s, ",\"\n\r")
}
