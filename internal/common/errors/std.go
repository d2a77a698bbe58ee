package errors

import stderrors "errors"

// Re-exports so callers importing this package under its default name keep
// access to the standard helpers.
var (
	New = stderrors.New
	Is  = stderrors.Is
	As  = stderrors.As
)
