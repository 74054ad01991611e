// Package schema validates and encodes the snapshot interop format.
//
// Snapshots leave the process as canonical JSON (see ir.MarshalCanonical), so
// the exported bytes of equal snapshots are identical and their digests
// stable. Incoming bytes are checked against an embedded CUE schema before
// they are decoded.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/rewind/internal/ir"
)

//go:embed snapshot.cue
var snapshotSchema string

// Source returns the CUE schema snapshots are validated against.
func Source() string {
	return snapshotSchema
}

// ValidationError reports snapshot bytes that do not match the schema.
type ValidationError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Path, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Validate checks that data is a well-formed snapshot document.
//
// It checks shape only. Cursor range, ID uniqueness and replay consistency
// are checked by timeline.Store.Restore.
func Validate(data []byte) error {
	// cue.Context is not safe for concurrent use; one per call.
	ctx := cuecontext.New()

	schema := ctx.CompileString(snapshotSchema, cue.Filename("snapshot.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile snapshot schema: %w", err)
	}

	expr, err := cuejson.Extract("snapshot.json", data)
	if err != nil {
		return formatCUEError(err)
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Snapshot")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// MarshalSnapshot encodes snap as canonical JSON.
func MarshalSnapshot[S any, P ir.Payload](snap ir.Snapshot[S, P]) ([]byte, error) {
	if snap.Events == nil {
		snap.Events = []ir.Event[P]{}
	}
	data, err := ir.Canonicalize(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot validates data against the schema and decodes it.
func UnmarshalSnapshot[S any, P ir.Payload](data []byte) (ir.Snapshot[S, P], error) {
	var snap ir.Snapshot[S, P]
	if err := Validate(data); err != nil {
		return snap, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// formatCUEError extracts path and position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	// Report the first error; CUE orders them by position.
	first := errs[0]
	format, args := first.Msg()
	verr := &ValidationError{
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		verr.Pos = positions[0]
	}
	return verr
}
