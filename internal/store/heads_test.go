package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainaudit/internal/chainhash"
	"github.com/roach88/chainaudit/internal/testutil"
)

func TestChainHead_Registered(t *testing.T) {
	s := createTestStore(t)
	b := testutil.NewChainBuilder("ledger", chainhash.Record).
		AppendData("r1", "1", "alpha").
		AppendData("r2", "2", "beta")
	writeFixture(t, s, b.Fixture())

	head, err := s.ChainHead(context.Background(), "ledger")
	require.NoError(t, err)
	assert.Equal(t, []byte("r2"), head.Key)
	assert.Equal(t, []byte(testutil.Terminator), head.Terminator)
	assert.Equal(t, b.Hash("r2"), head.TrustedHash)
	assert.Equal(t, "id", head.IDColumn)
}

func TestChainHead_NotRegistered(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ChainHead(context.Background(), "ledger")
	assert.ErrorIs(t, err, ErrHeadNotFound)
}

func TestTables_SortedByName(t *testing.T) {
	s := createTestStore(t)
	for _, name := range []string{"zeta", "alpha", "Mid"} {
		writeFixture(t, s, testutil.NewChainBuilder(name, chainhash.Record).AppendData("r1", "1", "x").Fixture())
	}

	tables, err := s.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Mid", "alpha", "zeta"}, tables)
}

func TestTables_Empty(t *testing.T) {
	s := createTestStore(t)

	tables, err := s.Tables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}
