package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/chainaudit/internal/chain"
)

// ChainHead implements chain.HeadOracle from the chain_heads registry.
// A database without the registry has no registered heads.
func (s *Store) ChainHead(ctx context.Context, table string) (chain.Head, error) {
	ok, err := s.hasHeadRegistry(ctx)
	if err != nil {
		return chain.Head{}, err
	}
	if !ok {
		return chain.Head{}, fmt.Errorf("%w: %s", ErrHeadNotFound, table)
	}

	var h chain.Head
	err = s.db.QueryRowContext(ctx, `
		SELECT head_key, terminator, predecessor_hash, id_column
		FROM chain_heads
		WHERE table_name = ?
	`, table).Scan(&h.Key, &h.Terminator, &h.TrustedHash, &h.IDColumn)
	if errors.Is(err, sql.ErrNoRows) {
		return chain.Head{}, fmt.Errorf("%w: %s", ErrHeadNotFound, table)
	}
	if err != nil {
		return chain.Head{}, fmt.Errorf("query chain head of %s: %w", table, err)
	}
	return h, nil
}

// Tables returns every table with a registered chain head, sorted by name.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	ok, err := s.hasHeadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name FROM chain_heads ORDER BY table_name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query chain heads: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan chain head: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chain heads: %w", err)
	}
	return tables, nil
}

// hasHeadRegistry reports whether the chain_heads table exists. Databases
// opened with OpenReadOnly never get it created.
func (s *Store) hasHeadRegistry(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'chain_heads'
	`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("look up chain_heads: %w", err)
	}
	return n > 0, nil
}
