// Package config loads chainaudit configuration files written in CUE.
//
// A configuration file is unified with the embedded #Config schema, which
// supplies defaults and rejects unknown fields:
//
//	database: "/var/lib/ledger.db"
//	tables: ["payments", "audit"]
//	columns: hash: "row_hash"
//	log_level: "debug"
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/chainaudit/internal/chain"
)

//go:embed schema.cue
var schemaCUE string

// Error codes for configuration failures.
const (
	ErrCodeRead     = "C001" // File could not be read
	ErrCodeCompile  = "C002" // CUE syntax or evaluation error
	ErrCodeValidate = "C003" // Value does not satisfy #Config
	ErrCodeDecode   = "C004" // Value could not be decoded
)

// Columns names the special columns of a chained table.
type Columns struct {
	Predecessor string `json:"predecessor"`
	Timestamp   string `json:"timestamp"`
	Hash        string `json:"hash"`
}

// Config is the decoded configuration.
type Config struct {
	Database           string   `json:"database"`
	Tables             []string `json:"tables"`
	Columns            Columns  `json:"columns"`
	LogLevel           string   `json:"log_level"`
	AllowDuplicateKeys bool     `json:"allow_duplicate_keys"`
}

// LoadError is a configuration failure with a code.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Default returns the configuration used when no file is given.
func Default() Config {
	d := chain.DefaultColumns()
	return Config{
		Tables: []string{},
		Columns: Columns{
			Predecessor: d.Predecessor,
			Timestamp:   d.Timestamp,
			Hash:        d.Hash,
		},
		LogLevel: "info",
	}
}

// Load reads a CUE configuration file. An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{Code: ErrCodeRead, Message: "read config file", Err: err}
	}
	return Parse(path, data)
}

// Parse evaluates CUE source against the #Config schema. filename is
// used in error positions only.
func Parse(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, &LoadError{Code: ErrCodeCompile, Message: "compile embedded schema", Err: err}
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return Config{}, &LoadError{Code: ErrCodeCompile, Message: details(err), Err: err}
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, &LoadError{Code: ErrCodeValidate, Message: details(err), Err: err}
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, &LoadError{Code: ErrCodeDecode, Message: details(err), Err: err}
	}
	if cfg.Tables == nil {
		cfg.Tables = []string{}
	}
	return cfg, nil
}

// details flattens a CUE error list into one message.
func details(err error) string {
	return errors.Details(err, nil)
}

// ChainColumns converts the configured column names.
func (c Config) ChainColumns() chain.Columns {
	return chain.Columns{
		Predecessor: c.Columns.Predecessor,
		Timestamp:   c.Columns.Timestamp,
		Hash:        c.Columns.Hash,
	}
}

// Level returns the slog level for LogLevel. Unknown names map to Info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
