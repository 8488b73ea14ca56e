package chain

// Index maps each primary key to its row snapshot. It is built once per
// verification run and is read-only afterwards.
type Index struct {
	keyColumn string
	rows      map[string]Row
}

// IndexOption configures BuildIndex.
type IndexOption func(*indexOptions)

type indexOptions struct {
	lastWriteWins bool
}

// LastWriteWins makes BuildIndex keep the last row for a duplicated key
// instead of failing with DUPLICATE_KEY.
func LastWriteWins() IndexOption {
	return func(o *indexOptions) {
		o.lastWriteWins = true
	}
}

// BuildIndex splits every row into its primary-key value and the rest of
// its columns and indexes the rows by key.
//
// Columns stored as NULL are kept as explicit nil entries. A row without a
// value for keyColumn fails with MISSING_KEY; a key seen twice fails with
// DUPLICATE_KEY unless LastWriteWins is given.
func BuildIndex(rows []RawRow, keyColumn string, opts ...IndexOption) (Index, error) {
	var o indexOptions
	for _, opt := range opts {
		opt(&o)
	}

	idx := Index{
		keyColumn: keyColumn,
		rows:      make(map[string]Row, len(rows)),
	}

	for _, raw := range rows {
		key, ok := raw[keyColumn]
		if !ok || key == nil {
			return Index{}, NewMissingKeyError(keyColumn)
		}

		fields := make(map[string][]byte, len(raw))
		for name, value := range raw {
			if name == keyColumn {
				continue
			}
			fields[name] = cloneBytes(value)
		}

		k := string(key)
		if _, dup := idx.rows[k]; dup && !o.lastWriteWins {
			return Index{}, NewDuplicateKeyError(key)
		}
		idx.rows[k] = Row{Key: cloneBytes(key), Fields: fields}
	}

	return idx, nil
}

// Lookup returns the row stored under key.
func (idx Index) Lookup(key []byte) (Row, bool) {
	row, ok := idx.rows[string(key)]
	return row, ok
}

// Len returns the number of indexed rows.
func (idx Index) Len() int {
	return len(idx.rows)
}

// KeyColumn returns the primary-key column the index was built with.
func (idx Index) KeyColumn() string {
	return idx.keyColumn
}
