package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// SessionCheck holds the verification result for one session.
type SessionCheck struct {
	Name      string   `json:"name"`
	Revisions int      `json:"revisions"`
	OK        bool     `json:"ok"`
	Problems  []string `json:"problems,omitempty"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	Sessions []SessionCheck `json:"sessions"`
	Failed   int            `json:"failed"`
	AllOK    bool           `json:"all_ok"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [session...]",
		Short: "Check archived sessions for corruption and replay drift",
		Long: `Verify every revision of the named sessions, or of all sessions.

For each revision this recomputes the stored digest, validates the snapshot
against the schema, replays its events and compares the result with the
recorded state. The latest revision's checkpoints are also recomputed from
scratch.

Exit codes:
  0 - All sessions verified
  1 - One or more sessions failed verification
  2 - Command error (archive not found, etc.)

Examples:
  rewind verify
  rewind verify main experiment --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runVerify(opts *RootOptions, names []string, cmd *cobra.Command) error {
	return withWorkspace(opts, func(w *workspace) error {
		ctx := context.Background()
		if len(names) == 0 {
			summaries, err := w.archive.List(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list sessions", err)
			}
			for _, s := range summaries {
				names = append(names, s.Name)
			}
		}

		result := VerifyResult{Sessions: make([]SessionCheck, 0, len(names)), AllOK: true}
		for _, name := range names {
			check := verifySession(ctx, w, name)
			if !check.OK {
				result.Failed++
				result.AllOK = false
			}
			result.Sessions = append(result.Sessions, check)
		}

		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		if err := formatter.Result(result, func(out io.Writer) {
			writeVerify(out, result)
		}); err != nil {
			return err
		}
		if !result.AllOK {
			return NewExitError(ExitFailure, fmt.Sprintf("%d session(s) failed verification", result.Failed))
		}
		return nil
	})
}

// verifySession checks every revision of one session.
func verifySession(ctx context.Context, w *workspace, name string) SessionCheck {
	check := SessionCheck{Name: name}
	fail := func(format string, args ...any) {
		check.Problems = append(check.Problems, fmt.Sprintf(format, args...))
	}

	corrupt, err := w.archive.Verify(ctx, name)
	if err != nil {
		fail("%v", err)
		return check
	}
	for _, c := range corrupt {
		fail("rev %d: digest mismatch (stored %.12s, computed %.12s)", c.Rev, c.Stored, c.Computed)
	}

	revisions, err := w.archive.Revisions(ctx, name)
	if err != nil {
		fail("%v", err)
		return check
	}
	check.Revisions = len(revisions)
	if len(revisions) == 0 {
		fail("session not found")
		return check
	}

	for i, rev := range revisions {
		store, _, err := w.load(ctx, name, rev.Rev)
		if err != nil {
			fail("rev %d: %v", rev.Rev, err)
			continue
		}
		if i == len(revisions)-1 {
			if err := store.VerifyCheckpoints(); err != nil {
				fail("rev %d: %v", rev.Rev, err)
			}
		}
	}

	check.OK = len(check.Problems) == 0
	return check
}

func writeVerify(w io.Writer, result VerifyResult) {
	if len(result.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}
	for _, s := range result.Sessions {
		if s.OK {
			fmt.Fprintf(w, "✓ %s (%d revision(s))\n", s.Name, s.Revisions)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, p := range s.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	fmt.Fprintln(w)
	if result.AllOK {
		fmt.Fprintln(w, "✓ All sessions verified")
		return
	}
	fmt.Fprintf(w, "%d of %d session(s) failed verification\n", result.Failed, len(result.Sessions))
}
