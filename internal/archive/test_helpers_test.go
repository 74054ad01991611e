package archive

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// createTestArchive creates a new archive in a temp directory for testing.
func createTestArchive(t *testing.T) *Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// snapshotJSON returns a small canonical snapshot document with n events.
func snapshotJSON(n int) []byte {
	events := make([]string, n)
	for i := range events {
		events[i] = fmt.Sprintf(
			`{"id":"e-%d","payload":{"amount":1,"key":"k","kind":"add"},"timestamp":%d,"type":"add"}`,
			i+1, (i+1)*1000)
	}
	return []byte(fmt.Sprintf(`{"events":[%s],"index":%d,"state":{"values":{"k":%d}},"timestamp":9}`,
		strings.Join(events, ","), n-1, n))
}
