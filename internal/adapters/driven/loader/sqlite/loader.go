// Package sqlite loads rows from a SQLite table for ingestion.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// Ensure RowsLoader implements the interface.
var _ driven.RowLoader = (*RowsLoader)(nil)

// identifierPattern limits table names to plain identifiers, since a table
// name cannot be a query placeholder.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RowsLoader reads every row of one table in a SQLite database file.
type RowsLoader struct {
	path  string
	table string
}

// NewRowsLoader creates a loader for the table in the database at path.
func NewRowsLoader(path, table string) (*RowsLoader, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RowsLoader{path: path, table: table}, nil
}

// Name identifies the loader in manifests.
func (l *RowsLoader) Name() string {
	return "sqlite"
}

// LoadRows reads the table in its natural order, converting every column
// value to its string form. NULLs become empty strings.
func (l *RowsLoader) LoadRows(ctx context.Context) ([]map[string]string, error) {
	db, err := sql.Open("sqlite", l.path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", l.path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %q", l.table))
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", l.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var result []map[string]string
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = values[i].String
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table %s: %w", l.table, err)
	}

	logger.Debug("Loaded %d rows from %s.%s", len(result), l.path, l.table)
	return result, nil
}
