package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/chainaudit/internal/fixture"
)

// WriteSQLite creates f's table in db, inserts its rows and registers its
// head in chain_heads. Every column is declared TEXT; the primary key is
// declared PRIMARY KEY so duplicate rows are rejected by SQLite.
func WriteSQLite(ctx context.Context, db *sql.DB, f *fixture.Fixture) error {
	defs := make([]string, len(f.Columns))
	quoted := make([]string, len(f.Columns))
	marks := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		quoted[i] = quote(c)
		marks[i] = "?"
		defs[i] = quoted[i] + " TEXT"
		if c == f.PrimaryKey {
			defs[i] += " PRIMARY KEY"
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(f.Table), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", f.Table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(f.Table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	for i, row := range f.Rows {
		args := make([]any, len(f.Columns))
		for j, c := range f.Columns {
			if v := row[c]; v != nil {
				args[j] = *v
			}
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if f.Head != nil {
		idColumn := f.IDColumn
		if idColumn == "" {
			idColumn = f.PrimaryKey
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chain_heads (table_name, head_key, terminator, predecessor_hash, id_column)
			VALUES (?, ?, ?, ?, ?)
		`, f.Table, []byte(*f.Head), []byte(f.Terminator), f.TrustedHash, idColumn); err != nil {
			return fmt.Errorf("register head of %s: %w", f.Table, err)
		}
	}

	return tx.Commit()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
