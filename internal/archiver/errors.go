package archiver

import "errors"

// ErrUnknownMethod indicates a requested extraction method has no
// registered implementation. Surfaced before any work is performed.
var ErrUnknownMethod = errors.New("unknown extraction method")

// ErrInvalidResume indicates the resume threshold is not a parsable
// timestamp.
var ErrInvalidResume = errors.New("invalid resume timestamp")

// ErrTimeout marks a method invocation that exceeded its time budget.
// Recorded per method, never fatal to the batch.
var ErrTimeout = errors.New("extraction timed out")
