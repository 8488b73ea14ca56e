package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndex_SplitsKeyFromFields(t *testing.T) {
	rows := []RawRow{
		{"id": []byte("r1"), "predecessor": []byte("0"), "data": []byte("a")},
		{"id": []byte("r2"), "predecessor": []byte("r1"), "data": []byte("b")},
	}

	idx, err := BuildIndex(rows, "id")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, "id", idx.KeyColumn())

	row, ok := idx.Lookup([]byte("r2"))
	require.True(t, ok)
	assert.Equal(t, []byte("r2"), row.Key)
	assert.NotContains(t, row.Fields, "id", "primary key must not be a field")
	assert.Equal(t, []byte("r1"), row.Fields["predecessor"])
	assert.Equal(t, []byte("b"), row.Fields["data"])
}

func TestBuildIndex_KeepsNullDistinctFromEmpty(t *testing.T) {
	rows := []RawRow{
		{"id": []byte("r1"), "null_col": nil, "empty_col": []byte{}},
	}

	idx, err := BuildIndex(rows, "id")
	require.NoError(t, err)

	row, _ := idx.Lookup([]byte("r1"))

	v, present := row.Field("null_col")
	assert.True(t, present, "NULL column must still be recorded")
	assert.Nil(t, v)

	v, present = row.Field("empty_col")
	assert.True(t, present)
	assert.NotNil(t, v, "empty value must stay non-nil")
	assert.Len(t, v, 0)

	_, present = row.Field("never_stored")
	assert.False(t, present)
}

func TestBuildIndex_CopiesInput(t *testing.T) {
	data := []byte("a")
	rows := []RawRow{{"id": []byte("r1"), "data": data}}

	idx, err := BuildIndex(rows, "id")
	require.NoError(t, err)

	data[0] = 'z'
	row, _ := idx.Lookup([]byte("r1"))
	assert.Equal(t, []byte("a"), row.Fields["data"])
}

func TestBuildIndex_DuplicateKeyRejected(t *testing.T) {
	rows := []RawRow{
		{"id": []byte("r1"), "data": []byte("first")},
		{"id": []byte("r1"), "data": []byte("second")},
	}

	_, err := BuildIndex(rows, "id")
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []byte("r1"), ce.Key)
}

func TestBuildIndex_LastWriteWins(t *testing.T) {
	rows := []RawRow{
		{"id": []byte("r1"), "data": []byte("first")},
		{"id": []byte("r1"), "data": []byte("second")},
	}

	idx, err := BuildIndex(rows, "id", LastWriteWins())
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	row, _ := idx.Lookup([]byte("r1"))
	assert.Equal(t, []byte("second"), row.Fields["data"])
}

func TestBuildIndex_MissingKey(t *testing.T) {
	tests := []struct {
		name string
		row  RawRow
	}{
		{"absent", RawRow{"data": []byte("a")}},
		{"null", RawRow{"id": nil, "data": []byte("a")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildIndex([]RawRow{tt.row}, "id")
			require.Error(t, err)
			assert.True(t, hasCode(err, ErrCodeMissingKey))
		})
	}
}

func TestBuildIndex_Empty(t *testing.T) {
	idx, err := BuildIndex(nil, "id")
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())

	_, ok := idx.Lookup([]byte("r1"))
	assert.False(t, ok)
}
