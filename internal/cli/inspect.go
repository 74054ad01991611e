package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/ledger"
)

// StateResult holds the output of the state command.
type StateResult struct {
	Session  string           `json:"session"`
	Rev      int64            `json:"rev"`
	Position int              `json:"position"`
	Index    int              `json:"index"`
	Length   int              `json:"length"`
	State    map[string]int64 `json:"state"`
}

// LogResult holds the output of the log command.
type LogResult struct {
	Session string                   `json:"session"`
	Rev     int64                    `json:"rev"`
	Index   int                      `json:"index"`
	Floor   int                      `json:"floor"`
	Seed    map[string]int64         `json:"seed,omitempty"`
	Events  []ir.Event[ledger.Event] `json:"events"`
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	var at int
	var rev int64
	cmd := &cobra.Command{
		Use:   "state <session>",
		Short: "Show a session's projected state",
		Long: `Show the ledger at the cursor, or at --at position without moving the
cursor. --rev reads an older revision of the session.

Examples:
  rewind state main
  rewind state main --at 0
  rewind state main --rev 2 --format json`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(rootOpts, func(w *workspace) error {
				store, entry, err := w.load(context.Background(), args[0], rev)
				if err != nil {
					return err
				}

				position := store.Index()
				state := store.State()
				if cmd.Flags().Changed("at") {
					position = max(store.Floor(), min(at, store.Len()-1))
					if state, err = store.StateAt(position); err != nil {
						return WrapExitError(ExitFailure, "failed to project state", err)
					}
				}

				result := StateResult{
					Session:  args[0],
					Rev:      entry.Rev,
					Position: position,
					Index:    store.Index(),
					Length:   store.Len(),
					State:    values(state),
				}
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Result(result, func(out io.Writer) {
					fmt.Fprintf(out, "%s @ %d (index %d, length %d, rev %d)\n",
						result.Session, result.Position, result.Index, result.Length, result.Rev)
					writeValues(out, result.State)
				})
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "project at this position instead of the cursor")
	cmd.Flags().Int64Var(&rev, "rev", 0, "read this revision instead of the latest")
	return cmd
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var rev int64
	cmd := &cobra.Command{
		Use:   "log <session>",
		Short: "List a session's events",
		Long: `List every event in the log. The cursor is marked with "*"; events after
it are undone and marked as such.

Examples:
  rewind log main
  rewind log main --format json`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(rootOpts, func(w *workspace) error {
				store, entry, err := w.load(context.Background(), args[0], rev)
				if err != nil {
					return err
				}

				result := LogResult{
					Session: args[0],
					Rev:     entry.Rev,
					Index:   store.Index(),
					Floor:   store.Floor(),
					Events:  store.Events(),
				}
				if result.Events == nil {
					result.Events = []ir.Event[ledger.Event]{}
				}
				if seed := store.Seed(); seed != nil {
					result.Seed = values(seed.State)
				}
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Result(result, func(out io.Writer) {
					writeLog(out, result)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&rev, "rev", 0, "read this revision instead of the latest")
	return cmd
}

func writeLog(w io.Writer, result LogResult) {
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "(no events)")
		return
	}
	if result.Seed != nil {
		fmt.Fprintln(w, "(compacted; position 0 includes earlier history)")
	}
	for pos, ev := range result.Events {
		marker := " "
		if pos == result.Index {
			marker = "*"
		}
		suffix := ""
		if pos > result.Index {
			suffix = "  (undone)"
		}
		fmt.Fprintf(w, "%s %4d  %s  %d  %s%s\n", marker, pos, ev.ID, ev.Timestamp, describe(ev.Payload), suffix)
	}
}

// describe renders a ledger event as a short command line.
func describe(e ledger.Event) string {
	switch e.Kind {
	case ledger.KindSet, ledger.KindAdd:
		return fmt.Sprintf("%s %s %d", e.Kind, e.Key, e.Amount)
	case ledger.KindDelete:
		return fmt.Sprintf("%s %s", e.Kind, e.Key)
	default:
		return string(e.Kind)
	}
}

// writeValues prints ledger values sorted by key.
func writeValues(w io.Writer, vals map[string]int64) {
	if len(vals) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %d\n", k, vals[k])
	}
}
