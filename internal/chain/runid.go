package chain

import (
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator produces the identifier attached to every log event of a
// verification run.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run IDs for deterministic tests.
// After the list is exhausted it keeps returning the last ID.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// With no ids it always returns "run-fixed".
func NewFixedGenerator(ids ...string) *FixedGenerator {
	if len(ids) == 0 {
		ids = []string{"run-fixed"}
	}
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
