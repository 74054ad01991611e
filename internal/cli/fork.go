package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ForkResult holds the result of the fork command.
type ForkResult struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Events  int    `json:"events"`
	Index   int    `json:"index"`
	Rev     int64  `json:"rev"`
	Dropped int    `json:"dropped"`
}

// NewForkCommand creates the fork command.
func NewForkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fork <source> <target>",
		Short: "Copy a session's active history into a new session",
		Long: `Create a new session from the events up to the source's cursor. Undone
events are not copied. The two sessions are independent afterwards.

Examples:
  rewind fork main experiment`,
		Args:          usageArgs(cobra.ExactArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFork(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runFork(opts *RootOptions, source, target string, cmd *cobra.Command) error {
	return withWorkspace(opts, func(w *workspace) error {
		ctx := context.Background()
		if source == target {
			return NewExitError(ExitCommandError, "source and target must differ")
		}
		taken, err := w.exists(ctx, target)
		if err != nil {
			return err
		}
		if taken {
			return NewExitError(ExitCommandError, fmt.Sprintf("session %q already exists", target))
		}

		store, _, err := w.load(ctx, source, 0)
		if err != nil {
			return err
		}
		forked, err := store.Fork()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to fork session", err)
		}
		entry, err := w.save(ctx, target, forked)
		if err != nil {
			return err
		}

		result := ForkResult{
			Source:  source,
			Target:  target,
			Events:  forked.Len(),
			Index:   forked.Index(),
			Rev:     entry.Rev,
			Dropped: store.Len() - forked.Len(),
		}
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Result(result, func(out io.Writer) {
			fmt.Fprintf(out, "Forked %q into %q: %d event(s), index %d (rev %d)\n",
				source, target, result.Events, result.Index, result.Rev)
			if result.Dropped > 0 {
				fmt.Fprintf(out, "%d undone event(s) were not copied.\n", result.Dropped)
			}
		})
	})
}
