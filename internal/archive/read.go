package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rewind/internal/ir"
)

// Entry is one stored snapshot revision.
type Entry struct {
	Session string
	Rev     int64
	Digest  string
	SavedAt int64
	Size    int

	// Data is the canonical snapshot. Empty in Revisions listings.
	Data []byte
}

// Summary describes a session.
type Summary struct {
	Name      string
	Revisions int64
	LatestRev int64
	CreatedAt int64
	UpdatedAt int64
}

// Latest returns the newest revision of session.
// Returns ErrNotFound if the session has no revisions.
func (a *Archive) Latest(ctx context.Context, session string) (Entry, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT session, rev, digest, data, saved_at
		FROM snapshots
		WHERE session = ?
		ORDER BY rev DESC
		LIMIT 1
	`, session)
	e, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("latest revision of %q: %w", session, err)
	}
	return e, nil
}

// Revision returns a specific revision of session.
// Returns ErrNotFound if it does not exist.
func (a *Archive) Revision(ctx context.Context, session string, rev int64) (Entry, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT session, rev, digest, data, saved_at
		FROM snapshots
		WHERE session = ? AND rev = ?
	`, session, rev)
	e, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("revision %d of %q: %w", rev, session, err)
	}
	return e, nil
}

// Revisions lists the revisions of session, oldest first, without data.
// Returns an empty slice (not nil) if the session has none.
func (a *Archive) Revisions(ctx context.Context, session string) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT session, rev, digest, length(data), saved_at
		FROM snapshots
		WHERE session = ?
		ORDER BY rev ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Session, &e.Rev, &e.Digest, &e.Size, &e.SavedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return entries, nil
}

// List returns every session ordered by name.
// Returns an empty slice (not nil) if there are none.
func (a *Archive) List(ctx context.Context) ([]Summary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT s.name, COUNT(r.rev), COALESCE(MAX(r.rev), 0), s.created_at, s.updated_at
		FROM sessions s
		LEFT JOIN snapshots r ON r.session = s.name
		GROUP BY s.name
		ORDER BY s.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Name, &s.Revisions, &s.LatestRev, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Corruption describes a revision whose stored digest does not match its data.
type Corruption struct {
	Rev      int64
	Stored   string
	Computed string
}

// Verify recomputes the digest of every revision of session.
// Returns the mismatches in rev order; an empty slice means the session is intact.
func (a *Archive) Verify(ctx context.Context, session string) ([]Corruption, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT rev, digest, data
		FROM snapshots
		WHERE session = ?
		ORDER BY rev ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}
	defer rows.Close()

	bad := []Corruption{}
	for rows.Next() {
		var rev int64
		var stored, data string
		if err := rows.Scan(&rev, &stored, &data); err != nil {
			return nil, fmt.Errorf("verify session: %w", err)
		}
		if computed := ir.SnapshotDigestBytes([]byte(data)); computed != stored {
			bad = append(bad, Corruption{Rev: rev, Stored: stored, Computed: computed})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}
	return bad, nil
}

func scanEntry(row *sql.Row) (Entry, error) {
	var e Entry
	var data string
	err := row.Scan(&e.Session, &e.Rev, &e.Digest, &data, &e.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	e.Data = []byte(data)
	e.Size = len(e.Data)
	return e, nil
}
