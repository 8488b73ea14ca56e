package chain

// RawRow is one record as returned by a RecordStore: column name to raw
// value, primary key included. A nil value is SQL NULL.
type RawRow map[string][]byte

// Row is an immutable snapshot of one record with its primary key split
// out. Fields never contains the primary-key column.
type Row struct {
	Key    []byte
	Fields map[string][]byte
}

// Field returns the value of a column. The boolean reports whether the
// column was present on the row at all; a present column may still be nil.
func (r Row) Field(name string) ([]byte, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Columns names the columns with special meaning in a chained table.
type Columns struct {
	// Predecessor holds the key of the previous record.
	Predecessor string
	// Timestamp is passed to the hash function separately from the values.
	Timestamp string
	// Hash is the stored hash of the record.
	Hash string
}

// DefaultColumns returns the column names used by the chained tables
// written by the database: predecessor, timestamp and hash.
func DefaultColumns() Columns {
	return Columns{
		Predecessor: "predecessor",
		Timestamp:   "timestamp",
		Hash:        "hash",
	}
}

// withDefaults fills empty names from DefaultColumns.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.Predecessor == "" {
		c.Predecessor = d.Predecessor
	}
	if c.Timestamp == "" {
		c.Timestamp = d.Timestamp
	}
	if c.Hash == "" {
		c.Hash = d.Hash
	}
	return c
}

// cloneBytes copies b, keeping nil as nil and empty as non-nil empty.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
