package chain

import (
	"log/slog"
)

// HashFunc computes the hash of one record from its key, its non-special
// column values in schema order, its timestamp and the hash of its
// predecessor. Nil entries in values are NULL columns and must hash
// differently from empty values.
type HashFunc func(key []byte, values [][]byte, timestamp []byte, previousHash string) string

// State is the verifier's position in its state machine.
//
//	Start → Verifying → {Verified | Broken}
type State int

const (
	StateStart State = iota
	StateVerifying
	StateVerified
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateVerifying:
		return "verifying"
	case StateVerified:
		return "verified"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// StepStatus records what happened to one key of the verification order.
type StepStatus string

const (
	StepVerified StepStatus = "verified"
	StepSkipped  StepStatus = "skipped"
	StepBroken   StepStatus = "broken"
)

// Step is one entry of the verification trace.
type Step struct {
	Key    []byte
	Status StepStatus
}

// VerifyConfig describes the table layout Verify needs.
type VerifyConfig struct {
	// Schema lists every column of the table in declared order.
	Schema []string

	// IDColumn is the chain's record-id column, excluded from the hash input.
	IDColumn string

	// Columns names the timestamp, hash and predecessor columns.
	Columns Columns

	// Logger receives per-record debug events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Outcome is the result of a Verify call.
type Outcome struct {
	State     State
	FinalHash string
	Steps     []Step
}

// Verify recomputes the hash of every record in order (oldest-first) and
// checks it against the record's stored hash.
//
// For each key the record's columns are split by role: the id and
// primary-key columns are skipped, the timestamp column is passed on its
// own, the hash column is the stored hash (NULL reads as ""), and every
// other column is collected in schema order as the value payload. The
// recomputation is seeded with the running hash, which is the stored hash
// of the previous record ("" for the oldest). The stored hash is only
// adopted as the running hash after it matched.
//
// Keys missing from the index are skipped. The first mismatch stops the
// run with BROKEN_CHAIN. On success FinalHash is the last accepted hash.
func Verify(idx Index, order [][]byte, fn HashFunc, cfg VerifyConfig) (Outcome, error) {
	cols := cfg.Columns.withDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := Outcome{
		State: StateVerifying,
		Steps: make([]Step, 0, len(order)),
	}
	running := ""

	for _, key := range order {
		row, ok := idx.Lookup(key)
		if key == nil || !ok {
			logger.Debug("record skipped", "key", string(key), "reason", "not in index")
			out.Steps = append(out.Steps, Step{Key: key, Status: StepSkipped})
			continue
		}

		var (
			values    = make([][]byte, 0, len(cfg.Schema))
			timestamp []byte
			stored    string
		)
		for _, name := range cfg.Schema {
			switch name {
			case cfg.IDColumn, idx.KeyColumn():
			case cols.Timestamp:
				timestamp, _ = row.Field(name)
			case cols.Hash:
				if v, _ := row.Field(name); v != nil {
					stored = string(v)
				}
			default:
				v, _ := row.Field(name)
				values = append(values, v)
			}
		}

		calculated := fn(row.Key, values, timestamp, running)
		if calculated != stored {
			logger.Debug("record broken", "key", string(key), "expected", stored, "actual", calculated)
			out.Steps = append(out.Steps, Step{Key: key, Status: StepBroken})
			out.State = StateBroken
			out.FinalHash = running
			return out, NewBrokenChainError(key, stored, calculated)
		}

		running = stored
		logger.Debug("record verified", "key", string(key), "hash", running)
		out.Steps = append(out.Steps, Step{Key: key, Status: StepVerified})
	}

	out.State = StateVerified
	out.FinalHash = running
	return out, nil
}
