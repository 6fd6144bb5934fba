package detect

import "errors"

// ErrHeadProbeFailed wraps a failed HEAD request so callers can distinguish
// a transient-remote failure (spec.md §7) from a decoder/logic error further
// down the pipeline.
var ErrHeadProbeFailed = errors.New("detect: head probe failed")
