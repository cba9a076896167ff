package importer

import "errors"

// ErrDepthUnsupported indicates a crawl depth beyond one level was
// requested. Surfaced before any work is performed.
var ErrDepthUnsupported = errors.New("crawl depth must be 0 or 1")
