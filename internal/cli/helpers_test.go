package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/testutil"
)

// cliEnv runs commands against one archive with a shared deterministic
// clock and ID generator, so consecutive invocations behave like one
// long-lived process.
type cliEnv struct {
	t     *testing.T
	dir   string
	db    string
	clock *testutil.DeterministicClock
	ids   *testutil.SequentialIDs
}

func newEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	return &cliEnv{
		t:     t,
		dir:   dir,
		db:    filepath.Join(dir, "rewind.db"),
		clock: testutil.NewDeterministicClock(),
		ids:   testutil.NewSequentialIDs("evt"),
	}
}

// run executes the CLI and returns stdout, stderr and the exit code.
func (e *cliEnv) run(args ...string) (string, string, int) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	opts := &RootOptions{Clock: e.clock, IDs: e.ids}
	code := run(opts, append([]string{"--db", e.db}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// mustRun executes the CLI and fails the test on a non-zero exit code.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, code := e.run(args...)
	require.Equal(e.t, ExitSuccess, code, "rewind %s: %s", strings.Join(args, " "), stderr)
	return stdout
}

// file writes content to name under the env directory and returns its path.
func (e *cliEnv) file(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// events writes JSONL ledger events and returns the file path.
func (e *cliEnv) events(lines ...string) string {
	e.t.Helper()
	return e.file("events.jsonl", strings.Join(lines, "\n")+"\n")
}

// seed applies the three-event ledger most tests start from:
// a=10 at 1000, a+=5 at 2000, b=1 at 3000.
func (e *cliEnv) seed(session string) {
	e.t.Helper()
	e.mustRun("apply", session, e.events(
		`{"kind":"set","key":"a","amount":10}`,
		`{"kind":"add","key":"a","amount":5}`,
		`{"kind":"set","key":"b","amount":1}`,
	))
}
