package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainState    = "rewind/state/v1"
	DomainEvent    = "rewind/event/v1"
	DomainSnapshot = "rewind/snapshot/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateDigest computes the digest of a projected state.
// Two states are considered equal exactly when their digests are equal.
func StateDigest(state any) (string, error) {
	canonical, err := Canonicalize(state)
	if err != nil {
		return "", fmt.Errorf("StateDigest: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// EventDigest computes the digest of a single event envelope.
func EventDigest[P Payload](e Event[P]) (string, error) {
	canonical, err := Canonicalize(e)
	if err != nil {
		return "", fmt.Errorf("EventDigest: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// SnapshotDigest computes the digest of a persisted snapshot.
// The capture timestamp is part of the digest.
func SnapshotDigest[S any, P Payload](s Snapshot[S, P]) (string, error) {
	canonical, err := Canonicalize(s)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// SnapshotDigestBytes computes the snapshot digest of bytes that are
// already in canonical form, as produced by Canonicalize. For such bytes it
// equals SnapshotDigest of the decoded snapshot.
func SnapshotDigestBytes(canonical []byte) string {
	return hashWithDomain(DomainSnapshot, canonical)
}

// StatesEqual reports whether two states have the same canonical form.
func StatesEqual(a, b any) (bool, error) {
	da, err := StateDigest(a)
	if err != nil {
		return false, err
	}
	db, err := StateDigest(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

// MustStateDigest is like StateDigest but panics on error.
// Use only in tests or when the state is known to encode.
func MustStateDigest(state any) string {
	d, err := StateDigest(state)
	if err != nil {
		panic(err)
	}
	return d
}
