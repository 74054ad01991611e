package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/archive"
)

// SessionInfo is one row of the sessions command.
type SessionInfo struct {
	Name      string `json:"name"`
	Revisions int64  `json:"revisions"`
	LatestRev int64  `json:"latest_rev"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// RevisionInfo is one row of the revisions command.
type RevisionInfo struct {
	Rev     int64  `json:"rev"`
	Digest  string `json:"digest"`
	SavedAt int64  `json:"saved_at"`
	Size    int    `json:"size"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List archived sessions",
		Long: `List every session in the archive with its revision count and last
update time (Unix ms).

Examples:
  rewind sessions
  rewind sessions --db ./team.db --format json`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(rootOpts, func(w *workspace) error {
				summaries, err := w.archive.List(context.Background())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list sessions", err)
				}

				rows := make([]SessionInfo, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, SessionInfo(s))
				}
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Result(rows, func(out io.Writer) {
					if len(rows) == 0 {
						fmt.Fprintln(out, "No sessions found.")
						return
					}
					tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "NAME\tREVISIONS\tLATEST\tUPDATED")
					for _, r := range rows {
						fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", r.Name, r.Revisions, r.LatestRev, r.UpdatedAt)
					}
					tw.Flush()
				})
			})
		},
	}
	return cmd
}

// NewRevisionsCommand creates the revisions command.
func NewRevisionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revisions <session>",
		Short: "List a session's stored revisions",
		Long: `List the stored snapshot revisions of a session, oldest first.

Examples:
  rewind revisions main`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(rootOpts, func(w *workspace) error {
				entries, err := w.archive.Revisions(context.Background(), args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list revisions", err)
				}
				if len(entries) == 0 {
					return NewExitError(ExitCommandError, fmt.Sprintf("session %q not found", args[0]))
				}

				rows := make([]RevisionInfo, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, RevisionInfo{Rev: e.Rev, Digest: e.Digest, SavedAt: e.SavedAt, Size: e.Size})
				}
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Result(rows, func(out io.Writer) {
					tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "REV\tSAVED\tSIZE\tDIGEST")
					for _, r := range rows {
						fmt.Fprintf(tw, "%d\t%d\t%d\t%.12s\n", r.Rev, r.SavedAt, r.Size, r.Digest)
					}
					tw.Flush()
				})
			})
		},
	}
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <session>",
		Short:         "Delete a session and all its revisions",
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(rootOpts, func(w *workspace) error {
				err := w.archive.Delete(context.Background(), args[0])
				if errors.Is(err, archive.ErrNotFound) {
					return WrapExitError(ExitCommandError, fmt.Sprintf("session %q not found", args[0]), err)
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to delete session", err)
				}
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Result(map[string]string{"deleted": args[0]}, func(out io.Writer) {
					fmt.Fprintf(out, "Deleted %q\n", args[0])
				})
			})
		},
	}
	return cmd
}

// NewPruneCommand creates the prune command.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune <session>",
		Short: "Delete old revisions of a session",
		Long: `Delete all but the newest --keep revisions of a session.

Examples:
  rewind prune main --keep 5`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 1 {
				return NewExitError(ExitCommandError, "--keep must be positive")
			}
			return withWorkspace(rootOpts, func(w *workspace) error {
				ctx := context.Background()
				found, err := w.exists(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return NewExitError(ExitCommandError, fmt.Sprintf("session %q not found", args[0]))
				}
				n, err := w.archive.Prune(ctx, args[0], keep)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to prune session", err)
				}
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Result(map[string]int64{"deleted": n}, func(out io.Writer) {
					fmt.Fprintf(out, "Pruned %d revision(s) of %q\n", n, args[0])
				})
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 10, "number of newest revisions to keep")
	return cmd
}
