package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chainaudit/internal/chain"
	"github.com/roach88/chainaudit/internal/chainhash"
	"github.com/roach88/chainaudit/internal/config"
	"github.com/roach88/chainaudit/internal/fixture"
	"github.com/roach88/chainaudit/internal/store"
)

// Table status values reported by verify.
const (
	StatusVerified = "verified"
	StatusMismatch = "mismatch"
	StatusError    = "error"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	DatabasePath string
	FixturePath  string
}

// ChainFailure describes why a chain failed verification.
type ChainFailure struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Key      string `json:"key,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// TableReport is the verification outcome of one table.
type TableReport struct {
	Table       string        `json:"table"`
	RunID       string        `json:"run_id,omitempty"`
	Status      string        `json:"status"`
	Records     int           `json:"records"`
	Order       []string      `json:"order"`
	FinalHash   string        `json:"final_hash,omitempty"`
	TrustedHash string        `json:"trusted_hash,omitempty"`
	Error       *ChainFailure `json:"error,omitempty"`
}

// VerifyResult is the verify command's payload.
type VerifyResult struct {
	OK     bool          `json:"ok"`
	Tables []TableReport `json:"tables"`
}

// String renders the result for text output.
func (r VerifyResult) String() string {
	var b strings.Builder
	for i, t := range r.Tables {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s (%d records)\n", t.Table, t.Status, t.Records)
		if t.RunID != "" {
			fmt.Fprintf(&b, "  run:     %s\n", t.RunID)
		}
		if len(t.Order) > 0 {
			fmt.Fprintf(&b, "  chain:   %s\n", strings.Join(t.Order, " -> "))
		}
		if t.FinalHash != "" {
			fmt.Fprintf(&b, "  final:   %s\n", t.FinalHash)
		}
		if t.TrustedHash != "" {
			fmt.Fprintf(&b, "  trusted: %s\n", t.TrustedHash)
		}
		if t.Error != nil {
			fmt.Fprintf(&b, "  error:   %s: %s", t.Error.Code, t.Error.Message)
			if t.Error.Key != "" {
				fmt.Fprintf(&b, " (key %q)", t.Error.Key)
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// source serves a chained table to the verifier.
type source interface {
	chain.RecordStore
	chain.SchemaProvider
	chain.HeadOracle
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify [table...]",
		Short: "Verify the hash chain of one or more tables",
		Long: `Verify walks each table's chain from its registered head back to the
terminator, recomputes every record hash and compares the final hash with
the trusted head hash.

Tables default to the config file's list, then to every table registered
in chain_heads. With --fixture the single table in the YAML file is
verified instead of a database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.DatabasePath, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.FixturePath, "fixture", "", "path to a YAML fixture")
	cmd.MarkFlagsMutuallyExclusive("db", "fixture")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *VerifyOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}

	src, defaultTables, closeSource, err := openSource(ctx, opts, cfg)
	if err != nil {
		code := ErrCodeGeneric
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open chain source", err)
	}
	defer closeSource()

	tables := args
	if len(tables) == 0 {
		tables = defaultTables
	}
	if len(tables) == 0 {
		formatter.Error(ErrCodeNoTables, "no tables to verify", nil)
		return NewExitError(ExitCommandError, "no tables to verify")
	}

	verifierOpts := []chain.Option{
		chain.WithColumns(cfg.ChainColumns()),
		chain.WithRunIDGenerator(newRunIDGenerator()),
		chain.WithLogger(newLogger(cmd.ErrOrStderr(), opts.RootOptions, cfg)),
	}
	if cfg.AllowDuplicateKeys {
		verifierOpts = append(verifierOpts, chain.WithLastWriteWins())
	}
	verifier := chain.NewVerifier(src, src, src, chainhash.Record, verifierOpts...)

	result := VerifyResult{OK: true, Tables: make([]TableReport, 0, len(tables))}
	exitCode := ExitSuccess
	for _, table := range tables {
		formatter.VerboseLog("verifying %s", table)
		report, code := verifyTable(ctx, verifier, table)
		if code > exitCode {
			exitCode = code
		}
		result.OK = result.OK && report.Status == StatusVerified
		result.Tables = append(result.Tables, report)
	}

	if exitCode == ExitSuccess {
		return formatter.Success(result)
	}

	message := "chain verification failed"
	if exitCode == ExitCommandError {
		message = "chain verification could not complete"
	}
	if opts.Format == "json" {
		formatter.Error(ErrCodeVerifyFailed, message, result)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), result)
		formatter.Error(ErrCodeVerifyFailed, message, nil)
	}
	return NewExitError(exitCode, message)
}

// verifyTable runs one table and maps the outcome to a report and an
// exit code.
func verifyTable(ctx context.Context, v *chain.Verifier, table string) (TableReport, int) {
	res, err := v.VerifyTable(ctx, table)
	if err == nil {
		report := TableReport{
			Table:       table,
			RunID:       res.RunID,
			Status:      StatusVerified,
			Records:     res.Records,
			Order:       keyStrings(res.Order),
			FinalHash:   res.FinalHash,
			TrustedHash: res.TrustedHash,
		}
		if !res.OK {
			report.Status = StatusMismatch
			report.Error = &ChainFailure{
				Code:     "HEAD_MISMATCH",
				Message:  "final hash does not match trusted head hash",
				Expected: res.TrustedHash,
				Actual:   res.FinalHash,
			}
			return report, ExitFailure
		}
		return report, ExitSuccess
	}

	report := TableReport{Table: table, Order: []string{}}
	var chainErr *chain.Error
	if errors.As(err, &chainErr) {
		report.Status = strings.ToLower(string(chainErr.Code))
		report.Error = &ChainFailure{
			Code:     string(chainErr.Code),
			Message:  chainErr.Message,
			Key:      string(chainErr.Key),
			Expected: chainErr.Expected,
			Actual:   chainErr.Actual,
		}
		return report, ExitFailure
	}

	report.Status = StatusError
	report.Error = &ChainFailure{Code: ErrCodeGeneric, Message: err.Error()}
	return report, ExitCommandError
}

// openSource opens the fixture or database named by the flags, falling
// back to the configured database. It returns the tables to verify when
// none are named on the command line.
func openSource(ctx context.Context, opts *VerifyOptions, cfg config.Config) (source, []string, func(), error) {
	if opts.FixturePath != "" {
		f, err := fixture.Load(opts.FixturePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return f, []string{f.Table}, func() {}, nil
	}

	st, err := openStore(opts.DatabasePath, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	tables := cfg.Tables
	if len(tables) == 0 {
		tables, err = st.Tables(ctx)
		if err != nil {
			st.Close()
			return nil, nil, nil, err
		}
	}
	return st, tables, func() { st.Close() }, nil
}

// openStore opens an existing database read-only. Verification never
// writes to the database it audits.
func openStore(path string, cfg config.Config) (*store.Store, error) {
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return nil, errors.New("no database given: use --db, --fixture or set database in the config file")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	return store.OpenReadOnly(path)
}

func keyStrings(keys [][]byte) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
