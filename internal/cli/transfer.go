package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/redact"
)

// ExportResult holds the result of an export written to a file.
type ExportResult struct {
	Session  string `json:"session"`
	Rev      int64  `json:"rev"`
	Path     string `json:"path"`
	Bytes    int    `json:"bytes"`
	Redacted int    `json:"redacted"`
}

// ImportResult holds the result of the import command.
type ImportResult struct {
	Session string `json:"session"`
	Events  int    `json:"events"`
	Index   int    `json:"index"`
	Rev     int64  `json:"rev"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var rev int64
	var output string
	var fields []string
	cmd := &cobra.Command{
		Use:   "export <session>",
		Short: "Write a session snapshot as JSON",
		Long: `Write the snapshot of a session revision as canonical JSON, to stdout or
to --output.

Payload fields listed in the config's redact_fields, plus any given with
--redact, are replaced with "[REDACTED]". A redacted snapshot is for
sharing; it no longer imports because its events do not replay to its
state.

Examples:
  rewind export main > main.json
  rewind export main --rev 3 -o main-r3.json
  rewind export main --redact key`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], rev, output, fields, cmd)
		},
	}
	cmd.Flags().Int64Var(&rev, "rev", 0, "export this revision instead of the latest")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringSliceVar(&fields, "redact", nil, "payload fields to mask (repeatable)")
	return cmd
}

func runExport(opts *RootOptions, session string, rev int64, output string, fields []string, cmd *cobra.Command) error {
	return withWorkspace(opts, func(w *workspace) error {
		// The revision must still replay before it is exported.
		store, entry, err := w.load(context.Background(), session, rev)
		if err != nil {
			return err
		}

		redactFields := slices.Concat(store.RedactFields(), fields)
		data, masked, err := redact.New(redactFields...).Snapshot(entry.Data)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to redact snapshot", err)
		}
		if masked > 0 {
			slog.Info("snapshot redacted", "session", session, "rev", entry.Rev, "masked", masked)
		}
		data = append(data, '\n')

		if output == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write export", err)
		}

		result := ExportResult{Session: session, Rev: entry.Rev, Path: output, Bytes: len(data), Redacted: masked}
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Result(result, func(out io.Writer) {
			fmt.Fprintf(out, "Exported %q rev %d to %s (%d bytes", session, result.Rev, output, result.Bytes)
			if masked > 0 {
				fmt.Fprintf(out, ", %d value(s) redacted", masked)
			}
			fmt.Fprintln(out, ")")
		})
	})
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import <session> <snapshot.json>",
		Short: "Restore a snapshot into a session",
		Long: `Validate a snapshot document, replay it, and store it as a new revision
of the session. Use "-" to read from stdin.

The snapshot is rejected if it does not match the schema, if its cursor or
event IDs are invalid, or if its events do not replay to its recorded
state. An existing session is only replaced with --force.

Examples:
  rewind import copy main.json
  rewind import main main.json --force`,
		Args:          usageArgs(cobra.ExactArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], args[1], force, cmd)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing session")
	return cmd
}

func runImport(opts *RootOptions, session, source string, force bool, cmd *cobra.Command) error {
	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}

	return withWorkspace(opts, func(w *workspace) error {
		ctx := context.Background()
		taken, err := w.exists(ctx, session)
		if err != nil {
			return err
		}
		if taken && !force {
			return NewExitError(ExitCommandError, fmt.Sprintf("session %q already exists (use --force to replace)", session))
		}

		store, err := w.decode(data)
		if err != nil {
			return err
		}
		entry, err := w.save(ctx, session, store)
		if err != nil {
			return err
		}

		result := ImportResult{Session: session, Events: store.Len(), Index: store.Index(), Rev: entry.Rev}
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Result(result, func(out io.Writer) {
			fmt.Fprintf(out, "Imported %d event(s) into %q at index %d (rev %d)\n",
				result.Events, session, result.Index, result.Rev)
		})
	})
}
