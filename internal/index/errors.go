package index

import "errors"

// ErrStore indicates the index database is unreachable or rejected an
// operation. Fatal to the current operation; retry policy belongs to
// the caller.
var ErrStore = errors.New("index store error")

// ErrNotFound indicates no snapshot matched the given key.
var ErrNotFound = errors.New("snapshot not found")

// ErrConflict indicates an insert collided with an existing snapshot's
// url or timestamp.
var ErrConflict = errors.New("snapshot conflicts with an existing entry")
