package ir

// Seed is the materialized state that replaces history dropped by compaction.
//
// Position is the log position the state belongs to. After a compaction it is
// always 0: the state includes the first surviving event.
type Seed[S any] struct {
	Position int `json:"position"`
	State    S   `json:"state"`
}

// Snapshot is the persisted form of a store.
//
// Events holds the full log, including events that were undone and are still
// redoable. State is the projection at Index at capture time. Seed is only
// present when the log was compacted; without it the dropped prefix could not
// be reproduced on restore.
//
// Checkpoints are not part of the snapshot. They are a cache and are rebuilt
// on restore.
type Snapshot[S any, P Payload] struct {
	Events    []Event[P] `json:"events"`
	Index     int        `json:"index"`
	State     S          `json:"state"`
	Timestamp int64      `json:"timestamp"`
	Seed      *Seed[S]   `json:"seed,omitempty"`
}

// Compacted reports whether the snapshot was taken from a compacted log.
func (s Snapshot[S, P]) Compacted() bool {
	return s.Seed != nil
}

// Digest returns the content digest of the snapshot.
// See SnapshotDigest.
func (s Snapshot[S, P]) Digest() (string, error) {
	return SnapshotDigest(s)
}
