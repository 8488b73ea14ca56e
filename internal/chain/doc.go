// Package chain verifies that the rows of a table form an unbroken,
// tamper-evident hash chain.
//
// Every row stores a hash computed from its own column values, its
// timestamp and the hash of its predecessor. Verification runs in three
// steps:
//
//   - BuildIndex separates each row's primary key from its other columns
//   - Walk follows predecessor pointers from the head back to the terminator
//     and returns the keys oldest-first
//   - Verify recomputes every hash in that order and compares it to the
//     stored value
//
// Verifier ties these together with the external collaborators (a
// RecordStore, a SchemaProvider, a HeadOracle and a HashFunc) and compares
// the final hash against the trusted head hash.
//
// # Invariants
//
//   - An Index is built per run and never shared between runs
//   - Null column values stay nil all the way into the hash payload;
//     a non-nil empty slice is a distinct, zero-length value
//   - Keys referenced by the walk but missing from the index are gaps,
//     not errors
//   - A predecessor cycle is reported as CHAIN_CYCLE_DETECTED instead of
//     looping
//
// Verification is synchronous and pure in-memory once the rows are
// loaded. Callers that need a deadline should wrap the whole VerifyTable
// call.
package chain
