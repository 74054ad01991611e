package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/rewind/internal/archive"
	"github.com/roach88/rewind/internal/config"
	"github.com/roach88/rewind/internal/ledger"
	"github.com/roach88/rewind/internal/metrics"
	"github.com/roach88/rewind/internal/schema"
	"github.com/roach88/rewind/internal/timeline"
)

// workspace is the per-command view of config, archive and metrics.
type workspace struct {
	opts     *RootOptions
	cfg      config.Config
	archive  *archive.Archive
	registry *prometheus.Registry
	metrics  *metrics.Observer
}

// openWorkspace loads the config and opens the archive it names.
func openWorkspace(opts *RootOptions) (*workspace, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	path := cfg.Archive.Path
	if opts.Database != "" {
		path = opts.Database
	}
	slog.Debug("opening archive", "path", path)
	a, err := archive.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open archive", err)
	}

	reg := prometheus.NewRegistry()
	return &workspace{
		opts:     opts,
		cfg:      cfg,
		archive:  a,
		registry: reg,
		metrics:  metrics.New(reg),
	}, nil
}

// Close closes the archive and writes the metrics file if one was requested.
func (w *workspace) Close() error {
	err := w.archive.Close()
	if w.opts.MetricsFile != "" {
		if merr := prometheus.WriteToTextfile(w.opts.MetricsFile, w.registry); merr != nil {
			err = errors.Join(err, fmt.Errorf("write metrics: %w", merr))
		}
	}
	return err
}

// storeOptions returns the timeline options for every store this command builds.
func (w *workspace) storeOptions() []timeline.Option {
	opts := append(w.cfg.Options(), timeline.WithObserver(w.metrics))
	if w.opts.Clock != nil {
		opts = append(opts, timeline.WithClock(w.opts.Clock))
	}
	if w.opts.IDs != nil {
		opts = append(opts, timeline.WithIDGenerator(w.opts.IDs))
	}
	return opts
}

// newStore creates an empty ledger store.
func (w *workspace) newStore() (*ledger.Store, error) {
	s, err := ledger.NewStore(w.storeOptions()...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid store options", err)
	}
	return s, nil
}

// decode validates snapshot bytes and restores them into a new store.
func (w *workspace) decode(data []byte) (*ledger.Store, error) {
	snap, err := schema.UnmarshalSnapshot[ledger.State, ledger.Event](data)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "invalid snapshot", err)
	}
	s, err := w.newStore()
	if err != nil {
		return nil, err
	}
	if err := s.Restore(snap); err != nil {
		return nil, WrapExitError(ExitFailure, "snapshot does not replay", err)
	}
	return s, nil
}

// exists reports whether session has at least one revision.
func (w *workspace) exists(ctx context.Context, session string) (bool, error) {
	_, err := w.archive.Latest(ctx, session)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, archive.ErrNotFound):
		return false, nil
	default:
		return false, WrapExitError(ExitCommandError, "failed to read archive", err)
	}
}

// load restores revision rev of session, or the latest revision when rev is 0.
func (w *workspace) load(ctx context.Context, session string, rev int64) (*ledger.Store, archive.Entry, error) {
	var entry archive.Entry
	var err error
	if rev == 0 {
		entry, err = w.archive.Latest(ctx, session)
	} else {
		entry, err = w.archive.Revision(ctx, session, rev)
	}
	if errors.Is(err, archive.ErrNotFound) {
		return nil, archive.Entry{}, WrapExitError(ExitCommandError, fmt.Sprintf("session %q not found", session), err)
	}
	if err != nil {
		return nil, archive.Entry{}, WrapExitError(ExitCommandError, "failed to read archive", err)
	}

	s, err := w.decode(entry.Data)
	if err != nil {
		return nil, archive.Entry{}, fmt.Errorf("session %q rev %d: %w", session, entry.Rev, err)
	}
	slog.Debug("session loaded", "session", session, "rev", entry.Rev, "length", s.Len(), "index", s.Index())
	return s, entry, nil
}

// save stores the current snapshot of s as a new revision of session.
// The snapshot timestamp doubles as the revision's save time.
func (w *workspace) save(ctx context.Context, session string, s *ledger.Store) (archive.Entry, error) {
	snap := s.Snapshot()
	data, err := schema.MarshalSnapshot(snap)
	if err != nil {
		return archive.Entry{}, WrapExitError(ExitFailure, "failed to encode snapshot", err)
	}
	entry, err := w.archive.Save(ctx, session, data, snap.Timestamp)
	if err != nil {
		return archive.Entry{}, WrapExitError(ExitCommandError, "failed to save session", err)
	}
	slog.Debug("session saved", "session", session, "rev", entry.Rev, "digest", entry.Digest)
	return entry, nil
}

// withWorkspace opens a workspace for fn and closes it afterwards.
func withWorkspace(opts *RootOptions, fn func(*workspace) error) (err error) {
	w, err := openWorkspace(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "failed to close workspace", cerr)
		}
	}()
	return fn(w)
}

// values returns the ledger values, never nil.
func values(st ledger.State) map[string]int64 {
	if st.Values == nil {
		return map[string]int64{}
	}
	return st.Values
}
