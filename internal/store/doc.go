// Package store reads chained tables from SQLite.
//
// Store implements the three collaborators a chain verification needs:
//
//   - chain.RecordStore: every row of a table, every cell as raw bytes
//   - chain.SchemaProvider: column order and primary key from PRAGMA table_info
//   - chain.HeadOracle: the trusted head of each chain, from chain_heads
//
// # Cell encoding
//
// Cells are selected as CAST(col AS BLOB) so the driver never converts
// them: NULL stays nil, TEXT and BLOB come back byte for byte (an empty
// value is a non-nil empty slice), and INTEGER/REAL come back as their
// SQLite text form.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The store never writes to chained tables. The only table it owns is
// chain_heads (see schema.sql).
package store
