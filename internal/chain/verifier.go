package chain

import (
	"context"
	"fmt"
	"log/slog"
)

// RecordStore returns every row of a table with all of its columns.
type RecordStore interface {
	FetchAllRows(ctx context.Context, table string) ([]RawRow, error)
}

// SchemaProvider describes a table's columns.
type SchemaProvider interface {
	// PrimaryKeyColumn returns the name of the table's primary-key column.
	PrimaryKeyColumn(ctx context.Context, table string) (string, error)
	// OrderedColumns returns every column of the table in declared order.
	OrderedColumns(ctx context.Context, table string) ([]string, error)
}

// Head is what a HeadOracle knows about the newest end of a chain.
type Head struct {
	// Key is the key of the most recent record.
	Key []byte
	// Terminator is the predecessor value meaning "no earlier record".
	Terminator []byte
	// TrustedHash is the externally trusted hash of the head record.
	TrustedHash string
	// IDColumn is the chain's record-id column.
	IDColumn string
}

// HeadOracle supplies the trusted head of a table's chain.
type HeadOracle interface {
	ChainHead(ctx context.Context, table string) (Head, error)
}

// Result reports a completed verification run.
type Result struct {
	RunID       string
	Table       string
	Records     int
	Order       [][]byte
	Steps       []Step
	FinalHash   string
	TrustedHash string

	// OK is true iff the recomputed final hash equals the trusted hash.
	OK bool
}

// Verifier runs verifications against its collaborators. Every call to
// VerifyTable builds its own index; nothing is cached between runs.
type Verifier struct {
	records       RecordStore
	schema        SchemaProvider
	heads         HeadOracle
	hash          HashFunc
	columns       Columns
	runIDs        RunIDGenerator
	logger        *slog.Logger
	lastWriteWins bool
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithColumns overrides the special column names. Empty names keep their
// defaults.
func WithColumns(c Columns) Option {
	return func(v *Verifier) {
		v.columns = c.withDefaults()
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(v *Verifier) {
		v.runIDs = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// WithLastWriteWins tolerates duplicate primary keys, keeping the last row.
func WithLastWriteWins() Option {
	return func(v *Verifier) {
		v.lastWriteWins = true
	}
}

// NewVerifier creates a Verifier over the given collaborators.
func NewVerifier(records RecordStore, schema SchemaProvider, heads HeadOracle, hash HashFunc, opts ...Option) *Verifier {
	v := &Verifier{
		records: records,
		schema:  schema,
		heads:   heads,
		hash:    hash,
		columns: DefaultColumns(),
		runIDs:  UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyTable verifies the chain stored in table.
//
// It returns a Result with OK set when every stored hash matches its
// recomputation and the final hash equals the oracle's trusted hash. An
// OK of false with a nil error means the chain is internally consistent
// but does not end at the trusted hash. INVALID_CHAIN_HEAD,
// CHAIN_CYCLE_DETECTED, BROKEN_CHAIN and collaborator failures are
// returned as errors.
func (v *Verifier) VerifyTable(ctx context.Context, table string) (*Result, error) {
	runID := v.runIDs.Generate()
	logger := v.logger.With("run_id", runID, "table", table)
	logger.Info("verification started")

	keyColumn, err := v.schema.PrimaryKeyColumn(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load primary key of %s: %w", table, err)
	}
	schema, err := v.schema.OrderedColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load columns of %s: %w", table, err)
	}

	rows, err := v.records.FetchAllRows(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("fetch rows of %s: %w", table, err)
	}

	var indexOpts []IndexOption
	if v.lastWriteWins {
		indexOpts = append(indexOpts, LastWriteWins())
	}
	idx, err := BuildIndex(rows, keyColumn, indexOpts...)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", table, err)
	}
	logger.Debug("index built", "rows", idx.Len(), "key_column", keyColumn)

	head, err := v.heads.ChainHead(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load chain head of %s: %w", table, err)
	}

	order, err := Walk(idx, head.Key, head.Terminator, v.columns.Predecessor)
	if err != nil {
		logger.Error("chain walk failed", "error", err)
		return nil, err
	}
	logger.Debug("chain walked", "length", len(order))

	out, err := Verify(idx, order, v.hash, VerifyConfig{
		Schema:   schema,
		IDColumn: head.IDColumn,
		Columns:  v.columns,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn("chain broken", "error", err)
		return nil, err
	}

	res := &Result{
		RunID:       runID,
		Table:       table,
		Records:     idx.Len(),
		Order:       order,
		Steps:       out.Steps,
		FinalHash:   out.FinalHash,
		TrustedHash: head.TrustedHash,
		OK:          out.FinalHash == head.TrustedHash,
	}
	logger.Info("verification finished", "ok", res.OK, "length", len(order), "final_hash", res.FinalHash)
	return res, nil
}
