package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/ledger"
)

// ApplyResult holds the result of the apply command.
type ApplyResult struct {
	Session     string `json:"session"`
	Applied     int    `json:"applied"`
	Rev         int64  `json:"rev"`
	Index       int    `json:"index"`
	Length      int    `json:"length"`
	Compactions int    `json:"compactions"`
	Created     bool   `json:"created"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <session> [events.jsonl]",
		Short: "Append ledger events to a session",
		Long: `Append newline-delimited JSON ledger events to a session, creating it if
needed. Events are read from the file, or from stdin when the file is
omitted or "-".

If the cursor is behind the end of the log, the undone events are
discarded first. Either every event is applied or none is.

Event format:
  {"kind":"set","key":"balance","amount":100}
  {"kind":"add","key":"balance","amount":-25}
  {"kind":"delete","key":"balance"}
  {"kind":"reset"}

Examples:
  rewind apply main events.jsonl
  echo '{"kind":"add","key":"n","amount":1}' | rewind apply main`,
		Args:          usageArgs(cobra.RangeArgs(1, 2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 2 {
				source = args[1]
			}
			return runApply(rootOpts, args[0], source, cmd)
		},
	}
	return cmd
}

func runApply(opts *RootOptions, session, source string, cmd *cobra.Command) error {
	events, err := readEvents(source, cmd.InOrStdin())
	if err != nil {
		return err
	}

	return withWorkspace(opts, func(w *workspace) error {
		ctx := context.Background()
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

		if len(events) == 0 {
			return formatter.Result(ApplyResult{Session: session}, func(out io.Writer) {
				fmt.Fprintln(out, "No events to apply.")
			})
		}

		found, err := w.exists(ctx, session)
		if err != nil {
			return err
		}
		var store *ledger.Store
		if found {
			store, _, err = w.load(ctx, session, 0)
		} else {
			store, err = w.newStore()
		}
		if err != nil {
			return err
		}

		for i, ev := range events {
			if _, err := store.Append(ev); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("event %d rejected; nothing was applied", i+1), err)
			}
		}

		entry, err := w.save(ctx, session, store)
		if err != nil {
			return err
		}

		result := ApplyResult{
			Session:     session,
			Applied:     len(events),
			Rev:         entry.Rev,
			Index:       store.Index(),
			Length:      store.Len(),
			Compactions: store.Compactions(),
			Created:     !found,
		}
		return formatter.Result(result, func(out io.Writer) {
			fmt.Fprintf(out, "Applied %d event(s) to %q (rev %d): index %d, length %d\n",
				result.Applied, session, result.Rev, result.Index, result.Length)
			if result.Compactions > 0 {
				fmt.Fprintf(out, "Compacted %d time(s); history before index %d is summarized.\n",
					result.Compactions, store.Floor())
			}
		})
	})
}

// readEvents parses JSONL events from path, or from stdin for "-".
func readEvents(path string, stdin io.Reader) ([]ledger.Event, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open events file", err)
		}
		defer f.Close()
		r = f
	}

	events, err := ledger.ParseEvents(r)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse events", err)
	}
	return events, nil
}
