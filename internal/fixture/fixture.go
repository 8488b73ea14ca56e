// Package fixture loads chained tables from YAML files.
//
// A fixture holds one table in memory and serves it through the
// chain.RecordStore, chain.SchemaProvider and chain.HeadOracle interfaces,
// so a chain can be verified without a database:
//
//	table: ledger
//	columns: [id, predecessor, timestamp, data, hash]
//	primary_key: id
//	head: "r3"
//	terminator: "0"
//	trusted_hash: "9f2c..."
//	rows:
//	  - {id: "r1", predecessor: "0", timestamp: "1700000000", data: "a", hash: "..."}
//	  - {id: "r2", predecessor: "r1", timestamp: null, data: "b", hash: "..."}
//
// A YAML null is a NULL column; an empty string is a zero-length value.
package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chainaudit/internal/chain"
)

// ErrTableNotFound is returned when a fixture is asked for another table.
var ErrTableNotFound = errors.New("fixture: table not found")

// Fixture is one chained table held in memory.
type Fixture struct {
	// Table is the table name served by this fixture.
	Table string `yaml:"table"`

	// Columns lists every column in declared order.
	Columns []string `yaml:"columns"`

	// PrimaryKey names the primary-key column.
	PrimaryKey string `yaml:"primary_key"`

	// IDColumn names the chain's record-id column. Defaults to PrimaryKey.
	IDColumn string `yaml:"id_column,omitempty"`

	// Head is the key of the newest record. Nil means no head is known.
	Head *string `yaml:"head"`

	// Terminator is the predecessor value of the oldest record.
	Terminator string `yaml:"terminator"`

	// TrustedHash is the hash the verified chain must end at.
	TrustedHash string `yaml:"trusted_hash"`

	// Rows holds the records; nil values are NULL columns.
	Rows []map[string]*string `yaml:"rows"`
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates fixture YAML. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that the fixture describes a usable table.
func (f *Fixture) Validate() error {
	if f.Table == "" {
		return errors.New("fixture: table is required")
	}
	if len(f.Columns) == 0 {
		return errors.New("fixture: columns are required")
	}
	if f.PrimaryKey == "" {
		return errors.New("fixture: primary_key is required")
	}
	if !slices.Contains(f.Columns, f.PrimaryKey) {
		return fmt.Errorf("fixture: primary_key %q is not a declared column", f.PrimaryKey)
	}
	for i, row := range f.Rows {
		for name := range row {
			if !slices.Contains(f.Columns, name) {
				return fmt.Errorf("fixture: rows[%d]: unknown column %q", i, name)
			}
		}
	}
	return nil
}

// Marshal encodes the fixture as YAML.
func (f *Fixture) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

func (f *Fixture) checkTable(table string) error {
	if table != f.Table {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return nil
}

// FetchAllRows implements chain.RecordStore.
func (f *Fixture) FetchAllRows(ctx context.Context, table string) ([]chain.RawRow, error) {
	if err := f.checkTable(table); err != nil {
		return nil, err
	}
	rows := make([]chain.RawRow, 0, len(f.Rows))
	for _, row := range f.Rows {
		raw := make(chain.RawRow, len(row))
		for name, v := range row {
			raw[name] = toBytes(v)
		}
		rows = append(rows, raw)
	}
	return rows, nil
}

// PrimaryKeyColumn implements chain.SchemaProvider.
func (f *Fixture) PrimaryKeyColumn(ctx context.Context, table string) (string, error) {
	if err := f.checkTable(table); err != nil {
		return "", err
	}
	return f.PrimaryKey, nil
}

// OrderedColumns implements chain.SchemaProvider.
func (f *Fixture) OrderedColumns(ctx context.Context, table string) ([]string, error) {
	if err := f.checkTable(table); err != nil {
		return nil, err
	}
	return slices.Clone(f.Columns), nil
}

// ChainHead implements chain.HeadOracle.
func (f *Fixture) ChainHead(ctx context.Context, table string) (chain.Head, error) {
	if err := f.checkTable(table); err != nil {
		return chain.Head{}, err
	}
	idColumn := f.IDColumn
	if idColumn == "" {
		idColumn = f.PrimaryKey
	}
	return chain.Head{
		Key:         toBytes(f.Head),
		Terminator:  []byte(f.Terminator),
		TrustedHash: f.TrustedHash,
		IDColumn:    idColumn,
	}, nil
}

// toBytes maps a nil pointer to nil and any string, even "", to a
// non-nil slice.
func toBytes(s *string) []byte {
	if s == nil {
		return nil
	}
	return append([]byte{}, *s...)
}

// Str returns a pointer to s, for building rows in code.
func Str(s string) *string {
	return &s
}
