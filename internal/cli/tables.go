package cli

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// TablesOptions holds flags for the tables command.
type TablesOptions struct {
	*RootOptions
	DatabasePath string
}

// TablesResult lists the tables with a registered chain head.
type TablesResult struct {
	Tables []string `json:"tables"`
}

// String renders one table per line.
func (r TablesResult) String() string {
	if len(r.Tables) == 0 {
		return "no chained tables"
	}
	return strings.Join(r.Tables, "\n")
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TablesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables registered in chain_heads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DatabasePath, "db", "", "path to SQLite database")

	return cmd
}

func runTables(cmd *cobra.Command, opts *TablesOptions) error {
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

	st, err := openStore(opts.DatabasePath, cfg)
	if err != nil {
		code := ErrCodeGeneric
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	tables, err := st.Tables(ctx)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list tables", err)
	}

	return formatter.Success(TablesResult{Tables: tables})
}
