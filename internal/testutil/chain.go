// Package testutil builds sealed chains for tests.
package testutil

import (
	"slices"

	"github.com/roach88/chainaudit/internal/chain"
	"github.com/roach88/chainaudit/internal/fixture"
)

// DefaultColumns is the layout of tables built by NewChainBuilder.
var DefaultColumns = []string{"id", "predecessor", "timestamp", "data", "note", "hash"}

// Terminator is the predecessor value of the oldest record.
const Terminator = "0"

// ChainBuilder appends records to an in-memory table and seals each one
// with a hash the way the database writes them: the hash covers the
// record's non-special values in column order, its timestamp and the
// previous record's hash.
//
// Not safe for concurrent use.
type ChainBuilder struct {
	f        *fixture.Fixture
	hash     chain.HashFunc
	cols     chain.Columns
	prevKey  string
	prevHash string
}

// NewChainBuilder starts an empty chain for table using DefaultColumns.
func NewChainBuilder(table string, fn chain.HashFunc) *ChainBuilder {
	return &ChainBuilder{
		f: &fixture.Fixture{
			Table:      table,
			Columns:    slices.Clone(DefaultColumns),
			PrimaryKey: "id",
			Terminator: Terminator,
		},
		hash:    fn,
		cols:    chain.DefaultColumns(),
		prevKey: Terminator,
	}
}

// Append adds a sealed record. values may set timestamp, data and note;
// a nil pointer stores NULL and a missing entry leaves the column absent.
func (b *ChainBuilder) Append(key string, values map[string]*string) *ChainBuilder {
	row := map[string]*string{
		"id":               fixture.Str(key),
		b.cols.Predecessor: fixture.Str(b.prevKey),
	}
	for name, v := range values {
		row[name] = v
	}

	sealed := b.seal(row, b.prevHash)
	row[b.cols.Hash] = fixture.Str(sealed)

	b.f.Rows = append(b.f.Rows, row)
	b.prevKey = key
	b.prevHash = sealed
	b.f.Head = fixture.Str(key)
	b.f.TrustedHash = sealed
	return b
}

// AppendData adds a sealed record with the given timestamp and data.
func (b *ChainBuilder) AppendData(key, timestamp, data string) *ChainBuilder {
	return b.Append(key, map[string]*string{
		"timestamp": fixture.Str(timestamp),
		"data":      fixture.Str(data),
	})
}

// Reseal recomputes the stored hash of key from its current values and
// the stored hash of the record before it, leaving later records alone.
// It models an attacker who rewrites a record together with its hash.
func (b *ChainBuilder) Reseal(key string) *ChainBuilder {
	prevHash := ""
	for _, row := range b.f.Rows {
		if id := row[b.f.PrimaryKey]; id != nil && *id == key {
			sealed := b.seal(row, prevHash)
			row[b.cols.Hash] = fixture.Str(sealed)
			if b.prevKey == key {
				b.prevHash = sealed
				b.f.TrustedHash = sealed
			}
			return b
		}
		if h := row[b.cols.Hash]; h != nil {
			prevHash = *h
		}
	}
	return b
}

// seal hashes row the way the verifier recomputes it.
func (b *ChainBuilder) seal(row map[string]*string, prevHash string) string {
	var (
		payload   [][]byte
		timestamp []byte
	)
	for _, name := range b.f.Columns {
		switch name {
		case b.f.PrimaryKey, b.cols.Hash:
		case b.cols.Timestamp:
			timestamp = bytesOf(row[name])
		default:
			payload = append(payload, bytesOf(row[name]))
		}
	}
	return b.hash([]byte(*row[b.f.PrimaryKey]), payload, timestamp, prevHash)
}

// Fixture returns the table built so far. The builder keeps ownership;
// callers that mutate rows should not append afterwards.
func (b *ChainBuilder) Fixture() *fixture.Fixture {
	return b.f
}

// Row returns the row stored under key, or nil.
func (b *ChainBuilder) Row(key string) map[string]*string {
	for _, row := range b.f.Rows {
		if id := row[b.f.PrimaryKey]; id != nil && *id == key {
			return row
		}
	}
	return nil
}

// Hash returns the stored hash of key, or "".
func (b *ChainBuilder) Hash(key string) string {
	if row := b.Row(key); row != nil && row[b.cols.Hash] != nil {
		return *row[b.cols.Hash]
	}
	return ""
}

func bytesOf(s *string) []byte {
	if s == nil {
		return nil
	}
	return append([]byte{}, *s...)
}
