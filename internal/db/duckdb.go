// Package db exposes the grid indicator tables to ad-hoc SQL through an
// in-memory DuckDB. Nothing is persisted.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-explorer/internal/catalog"
)

// ErrNotReadOnly is returned for statements that could modify the database.
var ErrNotReadOnly = eris.New("db: only read queries are allowed")

var readVerbs = map[string]bool{
	"select":    true,
	"with":      true,
	"from":      true,
	"show":      true,
	"describe":  true,
	"summarize": true,
	"explain":   true,
}

// Open starts an in-memory DuckDB.
func Open() (*sql.DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, eris.Wrap(err, "db: open duckdb")
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "db: ping duckdb")
	}
	return conn, nil
}

// RegisterGridTables loads each grid layer CSV found under dataDir into a
// table named after the layer id. Missing files are skipped. It returns the
// tables created.
func RegisterGridTables(ctx context.Context, conn *sql.DB, cat *catalog.Catalog, dataDir string) ([]string, error) {
	log := zap.L().With(zap.String("component", "db"))
	var created []string
	for _, layer := range cat.Grid.Layers {
		path := layer.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, path)
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			log.Debug("grid table source missing", zap.String("layer", layer.ID), zap.String("path", path))
			continue
		}
		stmt := fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s)`,
			quoteIdent(layer.ID), quoteString(path))
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return created, eris.Wrapf(err, "db: load grid table %s", layer.ID)
		}
		created = append(created, layer.ID)
	}
	log.Info("grid tables registered", zap.Strings("tables", created))
	return created, nil
}

// Tables lists the table names.
func Tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, eris.Wrap(err, "db: list tables")
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "db: scan table name")
		}
		tables = append(tables, name)
	}
	return tables, eris.Wrap(rows.Err(), "db: list tables")
}

// Result is a materialized query result.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Query runs a read-only statement.
func Query(ctx context.Context, conn *sql.DB, query string) (*Result, error) {
	if err := CheckReadOnly(query); err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "db: query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "db: columns")
	}
	res := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "db: scan row")
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "db: read rows")
	}
	return res, nil
}

// CheckReadOnly accepts a single statement starting with a read verb.
func CheckReadOnly(query string) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	if q == "" {
		return eris.Wrap(ErrNotReadOnly, "empty query")
	}
	if strings.Contains(q, ";") {
		return eris.Wrap(ErrNotReadOnly, "multiple statements")
	}
	verb := strings.ToLower(strings.Fields(q)[0])
	if !readVerbs[verb] {
		return eris.Wrapf(ErrNotReadOnly, "statement %q", verb)
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteString(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
