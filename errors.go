package surf

import (
	"errors"
	"fmt"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ERROR DEFINITIONS
// ═══════════════════════════════════════════════════════════════════════════════
// Package-level sentinels, compared with errors.Is.
//
// Only construction and loading can fail. A pattern that does not occur in the
// collection is not an error: it yields an iterator that is already exhausted.
var (
	ErrEmptyCollection    = errors.New("collection has no documents")
	ErrStackUnderflow     = errors.New("document depth stack popped empty")
	ErrMalformedReduction = errors.New("reduction mapping produced a malformed range")
	ErrMissingArtifact    = errors.New("persisted artifact is missing")
	ErrCorruptArtifact    = errors.New("persisted artifact is corrupt")
	ErrDocumentOutOfRange = errors.New("document id out of range")
	ErrUnknownWeighting   = errors.New("unknown weighting scheme")
)

// ArtifactError reports a problem with a single keyed blob in the cache
// directory.
type ArtifactError struct {
	Key  string
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %q (%s): %v", e.Key, e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// ConstructionError aborts a build. The index must be rebuilt from scratch.
type ConstructionError struct {
	Stage string
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construction stage %q failed: %v", e.Stage, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}
