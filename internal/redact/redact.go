// Package redact masks named payload fields in exported snapshots.
//
// Redaction works on the canonical JSON form, so it applies to any payload
// type. A redacted snapshot no longer replays to its recorded state and is
// meant for sharing, not for Restore.
package redact

import (
	"fmt"
	"maps"

	"github.com/roach88/rewind/internal/ir"
)

// Mask replaces every redacted value.
const Mask = "[REDACTED]"

// Redactor masks a fixed set of field names.
type Redactor struct {
	fields map[string]struct{}
}

// New returns a Redactor for the given field names.
func New(fields ...string) *Redactor {
	r := &Redactor{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		r.fields[f] = struct{}{}
	}
	return r
}

// Empty reports whether r masks nothing.
func (r *Redactor) Empty() bool {
	return len(r.fields) == 0
}

// Snapshot masks fields inside every event payload of a canonical snapshot
// document and returns the canonical result with the number of masked values.
// State and envelope fields are left untouched.
func (r *Redactor) Snapshot(data []byte) ([]byte, int, error) {
	if r.Empty() {
		return data, 0, nil
	}
	doc, err := ir.ParseJSON(data)
	if err != nil {
		return nil, 0, fmt.Errorf("redact snapshot: %w", err)
	}
	root, ok := doc.(ir.IRObject)
	if !ok {
		return nil, 0, fmt.Errorf("redact snapshot: document is not an object")
	}
	events, ok := root["events"].(ir.IRArray)
	if !ok {
		return nil, 0, fmt.Errorf("redact snapshot: events is not an array")
	}

	masked := 0
	out := make(ir.IRArray, len(events))
	for i, ev := range events {
		obj, ok := ev.(ir.IRObject)
		if !ok {
			return nil, 0, fmt.Errorf("redact snapshot: event %d is not an object", i)
		}
		copied := maps.Clone(obj)
		if payload, ok := obj["payload"]; ok {
			copied["payload"] = r.value(payload, &masked)
		}
		out[i] = copied
	}

	result := maps.Clone(root)
	result["events"] = out

	encoded, err := ir.MarshalCanonical(result)
	if err != nil {
		return nil, 0, fmt.Errorf("redact snapshot: %w", err)
	}
	return encoded, masked, nil
}

// Value returns a copy of v with matching object fields masked at any depth.
func (r *Redactor) Value(v ir.IRValue) ir.IRValue {
	n := 0
	return r.value(v, &n)
}

func (r *Redactor) value(v ir.IRValue, masked *int) ir.IRValue {
	switch t := v.(type) {
	case ir.IRObject:
		out := make(ir.IRObject, len(t))
		for k, child := range t {
			if _, hit := r.fields[k]; hit {
				out[k] = ir.IRString(Mask)
				*masked++
				continue
			}
			out[k] = r.value(child, masked)
		}
		return out
	case ir.IRArray:
		out := make(ir.IRArray, len(t))
		for i, child := range t {
			out[i] = r.value(child, masked)
		}
		return out
	default:
		return v
	}
}
