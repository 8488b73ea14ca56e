package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linkedIndex builds an index where each pair is {key, predecessor}.
// A predecessor of "" stores NULL.
func linkedIndex(t *testing.T, pairs ...[2]string) Index {
	t.Helper()
	rows := make([]RawRow, 0, len(pairs))
	for _, p := range pairs {
		row := RawRow{"id": []byte(p[0])}
		if p[1] == "" {
			row["predecessor"] = nil
		} else {
			row["predecessor"] = []byte(p[1])
		}
		rows = append(rows, row)
	}
	idx, err := BuildIndex(rows, "id")
	require.NoError(t, err)
	return idx
}

func keys(order [][]byte) []string {
	out := make([]string, len(order))
	for i, k := range order {
		out[i] = string(k)
	}
	return out
}

func TestWalk_ReconstructsOldestFirst(t *testing.T) {
	idx := linkedIndex(t,
		[2]string{"r3", "r2"},
		[2]string{"r1", "0"},
		[2]string{"r2", "r1"},
	)

	order, err := Walk(idx, []byte("r3"), []byte("0"), "predecessor")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, keys(order))
}

func TestWalk_SingleRecordChain(t *testing.T) {
	idx := linkedIndex(t, [2]string{"r1", "0"})

	order, err := Walk(idx, []byte("r1"), []byte("0"), "predecessor")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, keys(order))
}

func TestWalk_NilHead(t *testing.T) {
	idx := linkedIndex(t, [2]string{"r1", "0"})

	_, err := Walk(idx, nil, []byte("0"), "predecessor")
	require.Error(t, err)
	assert.True(t, IsInvalidHead(err))
}

func TestWalk_HeadMissingFromIndex(t *testing.T) {
	idx := linkedIndex(t, [2]string{"r1", "0"})

	order, err := Walk(idx, []byte("ghost"), []byte("0"), "predecessor")
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, keys(order))
}

func TestWalk_StopsAtMissingPredecessor(t *testing.T) {
	// r2 is referenced but was never stored.
	idx := linkedIndex(t,
		[2]string{"r1", "0"},
		[2]string{"r3", "r2"},
	)

	order, err := Walk(idx, []byte("r3"), []byte("0"), "predecessor")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3"}, keys(order))
}

func TestWalk_StopsAtNullPredecessor(t *testing.T) {
	idx := linkedIndex(t,
		[2]string{"r1", ""},
		[2]string{"r2", "r1"},
	)

	order, err := Walk(idx, []byte("r2"), []byte("0"), "predecessor")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, keys(order))
}

func TestWalk_CycleDetected(t *testing.T) {
	tests := []struct {
		name  string
		pairs [][2]string
		head  string
	}{
		{"self", [][2]string{{"r1", "r1"}}, "r1"},
		{"two", [][2]string{{"r1", "r2"}, {"r2", "r1"}}, "r2"},
		{"tail", [][2]string{{"r1", "r3"}, {"r2", "r1"}, {"r3", "r2"}, {"r4", "r3"}}, "r4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := linkedIndex(t, tt.pairs...)
			_, err := Walk(idx, []byte(tt.head), []byte("0"), "predecessor")
			require.Error(t, err)
			assert.True(t, IsCycle(err))
		})
	}
}

func TestWalk_CustomPredecessorColumn(t *testing.T) {
	idx, err := BuildIndex([]RawRow{
		{"id": []byte("a"), "prev": []byte("none")},
		{"id": []byte("b"), "prev": []byte("a")},
	}, "id")
	require.NoError(t, err)

	order, err := Walk(idx, []byte("b"), []byte("none"), "prev")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys(order))
}
