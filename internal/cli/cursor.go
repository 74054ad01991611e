package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/ledger"
)

// CursorResult holds the result of undo, redo and goto.
type CursorResult struct {
	Session string           `json:"session"`
	From    int              `json:"from"`
	To      int              `json:"to"`
	Moved   bool             `json:"moved"`
	Rev     int64            `json:"rev"`
	State   map[string]int64 `json:"state"`
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "undo <session>",
		Short: "Move a session's cursor back",
		Long: `Move the cursor back by one event, or by --steps events.
Undone events stay in the log until the next apply discards them.

Examples:
  rewind undo main
  rewind undo main --steps 3`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return NewExitError(ExitCommandError, "--steps must be positive")
			}
			return runCursor(rootOpts, args[0], cmd, func(s *ledger.Store) error {
				for i := 0; i < steps; i++ {
					moved, err := s.Undo()
					if err != nil || !moved {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of events to undo")
	return cmd
}

// NewRedoCommand creates the redo command.
func NewRedoCommand(rootOpts *RootOptions) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "redo <session>",
		Short: "Move a session's cursor forward",
		Long: `Move the cursor forward by one undone event, or by --steps events.

Examples:
  rewind redo main
  rewind redo main --steps 2`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return NewExitError(ExitCommandError, "--steps must be positive")
			}
			return runCursor(rootOpts, args[0], cmd, func(s *ledger.Store) error {
				for i := 0; i < steps; i++ {
					moved, err := s.Redo()
					if err != nil || !moved {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of events to redo")
	return cmd
}

// NewGotoCommand creates the goto command.
func NewGotoCommand(rootOpts *RootOptions) *cobra.Command {
	var index int
	var at int64
	cmd := &cobra.Command{
		Use:   "goto <session> (--index N | --time MS)",
		Short: "Move a session's cursor to a position or time",
		Long: `Move the cursor to an event position, or to the last event recorded at or
before a Unix timestamp in milliseconds. Targets outside the log are
clamped; -1 is the state before the first event.

Examples:
  rewind goto main --index 0
  rewind goto main --index -1
  rewind goto main --time 1718000000000`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			byIndex := cmd.Flags().Changed("index")
			byTime := cmd.Flags().Changed("time")
			if byIndex == byTime {
				return NewExitError(ExitCommandError, "exactly one of --index or --time is required")
			}
			return runCursor(rootOpts, args[0], cmd, func(s *ledger.Store) error {
				var err error
				if byIndex {
					_, err = s.Navigate(index)
				} else {
					_, err = s.NavigateToTime(at)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "target event position")
	cmd.Flags().Int64Var(&at, "time", 0, "target timestamp (Unix ms)")
	return cmd
}

// runCursor loads session, applies move and saves a revision if the cursor changed.
func runCursor(opts *RootOptions, session string, cmd *cobra.Command, move func(*ledger.Store) error) error {
	return withWorkspace(opts, func(w *workspace) error {
		ctx := context.Background()
		store, entry, err := w.load(ctx, session, 0)
		if err != nil {
			return err
		}

		from := store.Index()
		if err := move(store); err != nil {
			return WrapExitError(ExitFailure, "failed to move cursor", err)
		}

		result := CursorResult{
			Session: session,
			From:    from,
			To:      store.Index(),
			Moved:   store.Index() != from,
			Rev:     entry.Rev,
			State:   values(store.State()),
		}
		if result.Moved {
			saved, err := w.save(ctx, session, store)
			if err != nil {
				return err
			}
			result.Rev = saved.Rev
		}

		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Result(result, func(out io.Writer) {
			if !result.Moved {
				fmt.Fprintf(out, "%q stays at index %d; nothing to do\n", session, result.To)
				return
			}
			fmt.Fprintf(out, "Moved %q from %d to %d (rev %d)\n", session, result.From, result.To, result.Rev)
		})
	})
}
