// Package jsonl reads and writes newline-delimited JSON tables.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"reviewprep/internal/table"
)

const initialLineBuffer = 1024 * 1024

// maxLineBytes caps a single record. Longer lines are read to their end and
// treated as malformed.
var maxLineBytes = 64 * 1024 * 1024

var errLineTooLong = errors.New("line exceeds the maximum record size")

type LoadOptions struct {
	// Strict turns a malformed line into an error instead of skipping it.
	Strict bool
	// Limit stops after that many parsed rows when > 0.
	Limit  int
	Logger *zap.Logger
}

type Stats struct {
	SourceRows  int `json:"source_rows"`
	InvalidRows int `json:"invalid_rows"`
	Rows        int `json:"rows"`
}

// Load reads a JSON Lines file into a table. Columns follow the order in which
// keys first appear.
func Load(path string, opts LoadOptions) (*table.Table, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, stats, err := Read(f, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("loaded json lines",
		zap.String("path", path),
		zap.Int("source_rows", stats.SourceRows),
		zap.Int("invalid_rows", stats.InvalidRows),
		zap.Int("rows", stats.Rows),
		zap.Int("columns", len(t.Columns)))
	return t, stats, nil
}

// Read is Load over an arbitrary reader.
func Read(r io.Reader, opts LoadOptions) (*table.Table, Stats, error) {
	var stats Stats
	t := table.New(nil, nil)

	br := bufio.NewReaderSize(r, initialLineBuffer)
	lineNo := 0
	for {
		raw, tooLong, err := readLine(br)
		if err != nil && err != io.EOF {
			return nil, stats, err
		}
		if err == io.EOF && len(raw) == 0 && !tooLong {
			break
		}
		lineNo++
		line := bytes.TrimSpace(raw)
		if len(line) > 0 || tooLong {
			stats.SourceRows++
			row, keys, derr := decodeLine(line, tooLong)
			switch {
			case derr != nil && opts.Strict:
				return nil, stats, fmt.Errorf("line %d: %w", lineNo, derr)
			case derr != nil:
				stats.InvalidRows++
			default:
				for _, k := range keys {
					t.AddColumn(k)
				}
				t.Rows = append(t.Rows, row)
				if opts.Limit > 0 && len(t.Rows) >= opts.Limit {
					err = io.EOF
				}
			}
		}
		if err == io.EOF {
			break
		}
	}
	stats.Rows = len(t.Rows)
	return t, stats, nil
}

var errNotObject = errors.New("line is not a json object")

// readLine returns the next line without its terminator. A line longer than
// maxLineBytes is consumed up to its newline and reported as tooLong with no
// content.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineBytes+1 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch err {
		case bufio.ErrBufferFull:
			continue
		case nil:
			return bytes.TrimSuffix(line, []byte{'\n'}), tooLong, nil
		default:
			return line, tooLong, err
		}
	}
}

func decodeLine(line []byte, tooLong bool) (table.Row, []string, error) {
	if tooLong {
		return nil, nil, errLineTooLong
	}
	return decodeObject(line)
}

// decodeObject parses one top-level object and keeps its key order.
func decodeObject(line []byte) (table.Row, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errNotObject
	}
	row := table.Row{}
	var keys []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, nil, errNotObject
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = convertNumbers(v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.New("trailing data after json object")
	}
	return row, keys, nil
}

func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = convertNumbers(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = convertNumbers(t[k])
		}
		return t
	default:
		return v
	}
}
