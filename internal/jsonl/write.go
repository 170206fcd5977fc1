package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"reviewprep/internal/table"
)

// Write writes t as JSON Lines, one object per row with keys in column order.
// Missing cells are written as null.
func Write(path string, t *table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	if err := Encode(w, t); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// Encode streams t to w as JSON Lines.
func Encode(w io.Writer, t *table.Table) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, r := range t.Rows {
		buf.Reset()
		buf.WriteByte('{')
		for j, c := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := enc.Encode(c); err != nil {
				return fmt.Errorf("encode row %d key %q: %w", i, c, err)
			}
			trimNewline(&buf)
			buf.WriteByte(':')
			if err := enc.Encode(jsonValue(r[c])); err != nil {
				return fmt.Errorf("encode row %d column %q: %w", i, c, err)
			}
			trimNewline(&buf)
		}
		buf.WriteString("}\n")
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func jsonValue(v any) any {
	if table.IsMissing(v) {
		return nil
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.DateOnly)
	}
	return v
}

func trimNewline(buf *bytes.Buffer) {
	if b := buf.Bytes(); len(b) > 0 && b[len(b)-1] == '\n' {
		buf.Truncate(len(b) - 1)
	}
}
