package store

import (
	"context"
	"fmt"
)

// columnInfo is one row of PRAGMA table_info.
type columnInfo struct {
	name string
	pk   int
}

// tableColumns returns the columns of table in declared order.
func (s *Store) tableColumns(ctx context.Context, table string) ([]columnInfo, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("query table_info of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid      int
			name     string
			declType string
			notNull  int
			dflt     any
			pk       int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info of %s: %w", table, err)
		}
		cols = append(cols, columnInfo{name: name, pk: pk})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info of %s: %w", table, err)
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return cols, nil
}

// PrimaryKeyColumn implements chain.SchemaProvider. For a composite key
// the first key column is returned.
func (s *Store) PrimaryKeyColumn(ctx context.Context, table string) (string, error) {
	cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return "", err
	}
	for _, c := range cols {
		if c.pk == 1 {
			return c.name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoPrimaryKey, table)
}

// OrderedColumns implements chain.SchemaProvider.
func (s *Store) OrderedColumns(ctx context.Context, table string) ([]string, error) {
	cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names, nil
}
