package chain_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainaudit/internal/chain"
	"github.com/roach88/chainaudit/internal/chainhash"
	"github.com/roach88/chainaudit/internal/fixture"
	"github.com/roach88/chainaudit/internal/testutil"
)

func threeRecordChain() *testutil.ChainBuilder {
	return testutil.NewChainBuilder("ledger", chainhash.Record).
		AppendData("r1", "1700000001", "alpha").
		AppendData("r2", "1700000002", "beta").
		AppendData("r3", "1700000003", "gamma")
}

func newVerifier(f *fixture.Fixture, opts ...chain.Option) *chain.Verifier {
	opts = append([]chain.Option{
		chain.WithRunIDGenerator(chain.NewFixedGenerator("run-1")),
		chain.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	}, opts...)
	return chain.NewVerifier(f, f, f, chainhash.Record, opts...)
}

func orderKeys(order [][]byte) []string {
	out := make([]string, len(order))
	for i, k := range order {
		out[i] = string(k)
	}
	return out
}

func brokenKey(t *testing.T, err error) string {
	t.Helper()
	var ce *chain.Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, chain.ErrCodeBrokenChain, ce.Code)
	return string(ce.Key)
}

func TestVerifyTable_IntactChain(t *testing.T) {
	b := threeRecordChain()

	res, err := newVerifier(b.Fixture()).VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "ledger", res.Table)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, []string{"r1", "r2", "r3"}, orderKeys(res.Order))
	assert.Equal(t, b.Hash("r3"), res.FinalHash)
	assert.Equal(t, b.Hash("r3"), res.TrustedHash)
	for _, s := range res.Steps {
		assert.Equal(t, chain.StepVerified, s.Status)
	}
}

func TestVerifyTable_Idempotent(t *testing.T) {
	v := newVerifier(threeRecordChain().Fixture())

	first, err := v.VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)
	second, err := v.VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestVerifyTable_TamperedValueBreaksAtRecord(t *testing.T) {
	// Each stored hash covers its own record, so an edit without a new hash
	// fails at that record. TestVerifyTable_ResealedRecordBreaksAtSuccessor
	// covers the edit that also rewrites the hash.
	b := threeRecordChain()
	b.Row("r1")["data"] = fixture.Str("omega")

	_, err := newVerifier(b.Fixture()).VerifyTable(context.Background(), "ledger")
	require.Error(t, err)
	assert.True(t, chain.IsBrokenChain(err))
	assert.Equal(t, "r1", brokenKey(t, err))
}

func TestVerifyTable_ResealedRecordBreaksAtSuccessor(t *testing.T) {
	// Rewriting r1 together with its hash is caught by r2, whose stored
	// hash commits to r1's original hash.
	b := threeRecordChain()
	original := b.Hash("r1")
	b.Row("r1")["data"] = fixture.Str("omega")
	b.Reseal("r1")
	require.NotEqual(t, original, b.Hash("r1"))

	_, err := newVerifier(b.Fixture()).VerifyTable(context.Background(), "ledger")
	require.Error(t, err)
	assert.Equal(t, "r2", brokenKey(t, err))

	var ce *chain.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, b.Hash("r2"), ce.Expected)
	assert.NotEqual(t, ce.Expected, ce.Actual)
}

func TestVerifyTable_TamperedTimestamp(t *testing.T) {
	b := threeRecordChain()
	b.Row("r2")["timestamp"] = fixture.Str("1800000000")

	_, err := newVerifier(b.Fixture()).VerifyTable(context.Background(), "ledger")
	assert.Equal(t, "r2", brokenKey(t, err))
}

func TestVerifyTable_SingleRecordChain(t *testing.T) {
	b := testutil.NewChainBuilder("ledger", chainhash.Record).AppendData("only", "1", "x")

	res, err := newVerifier(b.Fixture()).VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, []string{"only"}, orderKeys(res.Order))
	require.Len(t, res.Steps, 1)
	assert.Equal(t, chain.StepVerified, res.Steps[0].Status)
}

func TestVerifyTable_NullDistinctFromEmpty(t *testing.T) {
	withNull := testutil.NewChainBuilder("ledger", chainhash.Record).
		Append("r1", map[string]*string{"data": fixture.Str("a"), "note": nil})
	withEmpty := testutil.NewChainBuilder("ledger", chainhash.Record).
		Append("r1", map[string]*string{"data": fixture.Str("a"), "note": fixture.Str("")})

	assert.NotEqual(t, withNull.Hash("r1"), withEmpty.Hash("r1"))

	for _, b := range []*testutil.ChainBuilder{withNull, withEmpty} {
		res, err := newVerifier(b.Fixture()).VerifyTable(context.Background(), "ledger")
		require.NoError(t, err)
		assert.True(t, res.OK)
	}

	// Swapping NULL for empty is tampering.
	withNull.Row("r1")["note"] = fixture.Str("")
	_, err := newVerifier(withNull.Fixture()).VerifyTable(context.Background(), "ledger")
	assert.True(t, chain.IsBrokenChain(err))
}

func TestVerifyTable_HeadMissingFromTable(t *testing.T) {
	f := threeRecordChain().Fixture()
	f.Head = fixture.Str("r9")

	res, err := newVerifier(f).VerifyTable(context.Background(), "ledger")
	require.NoError(t, err, "a gap is not a broken chain")
	assert.False(t, res.OK)
	assert.Equal(t, "", res.FinalHash)
	assert.Equal(t, []string{"r9"}, orderKeys(res.Order))
	assert.Equal(t, chain.StepSkipped, res.Steps[0].Status)
}

func TestVerifyTable_UntrustedHead(t *testing.T) {
	f := threeRecordChain().Fixture()
	f.TrustedHash = "not-the-head"

	res, err := newVerifier(f).VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.NotEqual(t, res.TrustedHash, res.FinalHash)
}

func TestVerifyTable_TruncatedChainIsNotOK(t *testing.T) {
	// Head points at r2: every record verifies but the trusted hash is r3's.
	b := threeRecordChain()
	f := b.Fixture()
	f.Head = fixture.Str("r2")

	res, err := newVerifier(f).VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, b.Hash("r2"), res.FinalHash)
}

func TestVerifyTable_InvalidHead(t *testing.T) {
	f := threeRecordChain().Fixture()
	f.Head = nil

	res, err := newVerifier(f).VerifyTable(context.Background(), "ledger")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, chain.IsInvalidHead(err))
}

func TestVerifyTable_Cycle(t *testing.T) {
	b := threeRecordChain()
	b.Row("r1")["predecessor"] = fixture.Str("r3")

	_, err := newVerifier(b.Fixture()).VerifyTable(context.Background(), "ledger")
	require.Error(t, err)
	assert.True(t, chain.IsCycle(err))
}

func TestVerifyTable_DuplicateKey(t *testing.T) {
	b := threeRecordChain()
	f := b.Fixture()
	dup := make(map[string]*string)
	for k, v := range b.Row("r2") {
		dup[k] = v
	}
	f.Rows = append(f.Rows, dup)

	_, err := newVerifier(f).VerifyTable(context.Background(), "ledger")
	assert.True(t, chain.IsDuplicateKey(err))

	res, err := newVerifier(f, chain.WithLastWriteWins()).VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestVerifyTable_UnknownTable(t *testing.T) {
	_, err := newVerifier(threeRecordChain().Fixture()).VerifyTable(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fixture.ErrTableNotFound))
}

func TestVerifyTable_CustomColumns(t *testing.T) {
	// Rename the predecessor column in an already sealed chain: the
	// payload is unchanged, only the walk needs to know the new name.
	b := threeRecordChain()
	f := b.Fixture()
	for i, c := range f.Columns {
		if c == "predecessor" {
			f.Columns[i] = "prev"
		}
	}
	for _, row := range f.Rows {
		row["prev"] = row["predecessor"]
		delete(row, "predecessor")
	}

	res, err := newVerifier(f, chain.WithColumns(chain.Columns{Predecessor: "prev"})).VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Len(t, res.Order, 3)
}

func TestVerifyTable_ConcurrentRunsAreIndependent(t *testing.T) {
	v := chain.NewVerifier(
		threeRecordChain().Fixture(), threeRecordChain().Fixture(), threeRecordChain().Fixture(),
		chainhash.Record,
		chain.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)

	var wg sync.WaitGroup
	results := make([]*chain.Result, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = v.VerifyTable(context.Background(), "ledger")
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, results[i].OK)
		assert.NotEmpty(t, results[i].RunID)
	}
}

func TestVerifyTable_LogsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := newVerifier(threeRecordChain().Fixture(), chain.WithLogger(logger)).VerifyTable(context.Background(), "ledger")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="verification started" run_id=run-1 table=ledger`)
	assert.Contains(t, out, `msg="record verified" run_id=run-1 table=ledger key=r2`)
	assert.Contains(t, out, "ok=true")
}
