package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/chainaudit/internal/fixture"
	"github.com/roach88/chainaudit/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeFixture stores f in s.
func writeFixture(t *testing.T, s *Store, f *fixture.Fixture) {
	t.Helper()
	if err := testutil.WriteSQLite(context.Background(), s.DB(), f); err != nil {
		t.Fatalf("WriteSQLite() failed: %v", err)
	}
}

// getTableColumns returns column names for a table.
func getTableColumns(t *testing.T, s *Store, table string) []string {
	t.Helper()
	cols, err := s.OrderedColumns(context.Background(), table)
	if err != nil {
		t.Fatalf("OrderedColumns(%q) failed: %v", table, err)
	}
	return cols
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
