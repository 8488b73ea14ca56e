package chain

import (
	"bytes"
	"slices"
)

// Walk follows predecessor pointers from head back to the terminator and
// returns the visited keys oldest-first.
//
// The walk stops when:
//   - the current key is not in the index (the chain is shorter than
//     expected; the missing key is still part of the order)
//   - the predecessor column is NULL or absent
//   - the predecessor equals terminator
//
// A nil head fails with INVALID_CHAIN_HEAD. Even an empty chain has an
// explicit head record pointing at the terminator. Revisiting a key fails
// with CHAIN_CYCLE_DETECTED.
func Walk(idx Index, head, terminator []byte, predecessorColumn string) ([][]byte, error) {
	if head == nil {
		return nil, NewInvalidHeadError()
	}

	visited := make(map[string]struct{})
	var order [][]byte

	key := head
	for {
		if _, seen := visited[string(key)]; seen {
			return nil, NewCycleError(key)
		}
		visited[string(key)] = struct{}{}
		order = append(order, key)

		row, ok := idx.Lookup(key)
		if !ok {
			break
		}
		next, _ := row.Field(predecessorColumn)
		if next == nil || bytes.Equal(next, terminator) {
			break
		}
		key = next
	}

	slices.Reverse(order)
	return order, nil
}
