package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/chainaudit/internal/chain"
	"github.com/roach88/chainaudit/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to a CUE config file
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// newRunIDGenerator supplies run IDs for verification runs.
// Tests replace it to get deterministic output.
var newRunIDGenerator = func() chain.RunIDGenerator {
	return chain.UUIDv7Generator{}
}

// NewRootCommand creates the root command for the chainaudit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chainaudit",
		Short: "chainaudit - hash chain verifier",
		Long:  "Verify that the rows of chained tables form an unbroken, tamper-evident hash chain.",
		// Commands report their own errors through OutputFormatter.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to CUE config file")

	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig loads the config file named by the global flag.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger writes text log events to w. Verbose forces debug level.
func newLogger(w io.Writer, opts *RootOptions, cfg config.Config) *slog.Logger {
	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
