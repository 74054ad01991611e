package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/rewind/internal/ir"
)

// Save appends data as the next revision of session, creating the session
// if needed. data must be a canonical JSON snapshot (schema.MarshalSnapshot).
//
// If data is identical to the session's latest revision, nothing is written
// and the existing revision is returned.
func (a *Archive) Save(ctx context.Context, session string, data []byte, savedAt int64) (Entry, error) {
	if session == "" {
		return Entry{}, fmt.Errorf("save snapshot: session name is required")
	}
	digest := ir.SnapshotDigestBytes(data)

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("save snapshot: %w", err)
	}
	defer tx.Rollback()

	var latestRev int64
	var latestDigest string
	var latestSavedAt int64
	err = tx.QueryRowContext(ctx, `
		SELECT rev, digest, saved_at FROM snapshots
		WHERE session = ?
		ORDER BY rev DESC
		LIMIT 1
	`, session).Scan(&latestRev, &latestDigest, &latestSavedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Entry{}, fmt.Errorf("save snapshot: latest revision: %w", err)
	case latestDigest == digest:
		slog.Debug("snapshot unchanged, not saved", "session", session, "rev", latestRev)
		return Entry{
			Session: session,
			Rev:     latestRev,
			Digest:  digest,
			SavedAt: latestSavedAt,
			Size:    len(data),
		}, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (name, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at
	`, session, savedAt, savedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("save snapshot: upsert session: %w", err)
	}

	rev := latestRev + 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (session, rev, digest, data, saved_at)
		VALUES (?, ?, ?, ?, ?)
	`, session, rev, digest, string(data), savedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("save snapshot: insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("save snapshot: commit: %w", err)
	}

	slog.Debug("snapshot saved", "session", session, "rev", rev, "digest", digest, "bytes", len(data))
	return Entry{
		Session: session,
		Rev:     rev,
		Digest:  digest,
		SavedAt: savedAt,
		Size:    len(data),
	}, nil
}

// Delete removes a session and all of its revisions.
// Returns ErrNotFound if the session does not exist.
func (a *Archive) Delete(ctx context.Context, session string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, session)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete session %q: %w", session, ErrNotFound)
	}
	return nil
}

// Prune deletes all but the newest keep revisions of session and returns
// how many were deleted. keep must be at least 1.
func (a *Archive) Prune(ctx context.Context, session string, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("prune session: keep must be at least 1, got %d", keep)
	}
	res, err := a.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE session = ?
		AND rev <= (SELECT MAX(rev) FROM snapshots WHERE session = ?) - ?
	`, session, session, keep)
	if err != nil {
		return 0, fmt.Errorf("prune session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune session: %w", err)
	}
	if n > 0 {
		slog.Info("revisions pruned", "session", session, "deleted", n, "kept", keep)
	}
	return n, nil
}
