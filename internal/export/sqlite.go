package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reviewprep/internal/table"
)

// NamedTable pairs a table with the SQLite table name it is stored under.
type NamedTable struct {
	Name    string
	Table   *table.Table
	Indexes []string
}

// Run describes one pipeline execution; it is stored in the runs table.
type Run struct {
	ID           string
	StartedAt    time.Time
	Dataset      string
	ReviewRows   int
	MetadataRows int
}

// WriteSQLite recreates the database at path with one table per NamedTable and
// a runs table holding run.
func WriteSQLite(ctx context.Context, path string, run Run, tables ...NamedTable) error {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, nt := range tables {
		if err := writeTable(ctx, tx, nt); err != nil {
			return fmt.Errorf("table %s: %w", nt.Name, err)
		}
	}
	if err := writeRun(ctx, tx, run); err != nil {
		return fmt.Errorf("table runs: %w", err)
	}
	return tx.Commit()
}

func writeTable(ctx context.Context, tx *sql.Tx, nt NamedTable) error {
	cols := nt.Table.Columns
	if len(cols) == 0 {
		return fmt.Errorf("no columns")
	}
	defs := make([]string, 0, len(cols))
	qCols := make([]string, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, fmt.Sprintf("%q %s", c, sqliteType(nt.Table, c)))
		qCols = append(qCols, fmt.Sprintf("%q", c))
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, nt.Name)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (%s)`, nt.Name, strings.Join(defs, ","))); err != nil {
		return err
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, nt.Name, strings.Join(qCols, ","), ph))
	if err != nil {
		return err
	}
	defer stmt.Close()
	args := make([]any, len(cols))
	for _, r := range nt.Table.Rows {
		for i, c := range cols {
			args[i] = sqliteValue(r[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	for _, idx := range nt.Indexes {
		if !nt.Table.HasColumn(idx) {
			continue
		}
		q := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q(%q)`, "idx_"+nt.Name+"_"+idx, nt.Name, idx)
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func writeRun(ctx context.Context, tx *sql.Tx, run Run) error {
	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		dataset TEXT,
		review_rows INTEGER NOT NULL,
		metadata_rows INTEGER NOT NULL
	)`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, dataset, review_rows, metadata_rows) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.Dataset, run.ReviewRows, run.MetadataRows)
	return err
}

// sqliteType picks the column affinity from the first non-missing value.
func sqliteType(t *table.Table, col string) string {
	for _, r := range t.Rows {
		switch v := r[col].(type) {
		case nil:
			continue
		case float64, float32:
			if table.IsMissing(v) {
				continue
			}
			return "REAL"
		case bool, int, int64:
			return "INTEGER"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

func sqliteValue(v any) any {
	if table.IsMissing(v) {
		return nil
	}
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case float32:
		return widen(t)
	case time.Time:
		return t.UTC().Format(time.DateOnly)
	case []any, map[string]any:
		return csvString(t)
	default:
		return t
	}
}

// widen converts through the shortest decimal form so 12.99f stays 12.99.
func widen(f float32) float64 {
	w, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return w
}
