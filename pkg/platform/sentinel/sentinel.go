package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// - ErrConflict: a record with the same identity already exists
// - ErrCorrupt: persisted state exists but cannot be decoded
// - ErrClosed: the component has been shut down and accepts no more work
var (
	ErrConflict = errors.New("conflict")
	ErrCorrupt  = errors.New("corrupt document")
	ErrClosed   = errors.New("closed")
)
