package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/chainaudit/internal/chain"
)

// FetchAllRows implements chain.RecordStore. Rows come back in no
// particular order; callers index them by key.
func (s *Store) FetchAllRows(ctx context.Context, table string) ([]chain.RawRow, error) {
	cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	exprs := make([]string, len(cols))
	for i, c := range cols {
		exprs[i] = fmt.Sprintf("CAST(%s AS BLOB)", quoteIdent(c.name))
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), quoteIdent(table))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rows of %s: %w", table, err)
	}
	defer rows.Close()

	out := []chain.RawRow{}
	cells := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", table, err)
		}
		raw := make(chain.RawRow, len(cols))
		for i, c := range cols {
			raw[c.name] = cellBytes(cells[i])
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %s: %w", table, err)
	}

	return out, nil
}

// cellBytes converts a scanned cell to raw bytes. NULL is nil; every
// other value, even an empty one, is non-nil.
func cellBytes(v any) []byte {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return append([]byte{}, val...)
	case string:
		return append([]byte{}, val...)
	case int64:
		return strconv.AppendInt([]byte{}, val, 10)
	case float64:
		return strconv.AppendFloat([]byte{}, val, 'g', -1, 64)
	case bool:
		if val {
			return []byte("1")
		}
		return []byte("0")
	case time.Time:
		return []byte(val.UTC().Format(time.RFC3339Nano))
	default:
		return []byte(fmt.Sprint(val))
	}
}
