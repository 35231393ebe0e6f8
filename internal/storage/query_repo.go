package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ArticlesTable is the table exposed to generated queries.
const ArticlesTable = "articles"

// QueryResult holds the rows of an ad-hoc SELECT.
type QueryResult struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// QueryRepo runs ad-hoc read queries against the metadata database.
// The connection it is given should be opened with OpenReadOnly.
type QueryRepo struct {
	db *sql.DB
}

// NewQueryRepo creates a new QueryRepo.
func NewQueryRepo(db *sql.DB) *QueryRepo {
	return &QueryRepo{db: db}
}

// Columns returns the column names of the articles table in declaration order.
func (r *QueryRepo) Columns(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", ArticlesTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", ArticlesTable)
	}
	return cols, nil
}

// Select runs query and returns at most maxRows rows. Text and blob values are
// returned as strings and timestamps as RFC3339.
func (r *QueryRepo) Select(ctx context.Context, query string, maxRows int) (*QueryResult, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) == maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			switch val := v.(type) {
			case []byte:
				values[i] = string(val)
			case time.Time:
				values[i] = val.UTC().Format(time.RFC3339)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}
