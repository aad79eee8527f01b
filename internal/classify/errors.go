package classify

import "errors"

// ErrNoTargetSegments indicates classification produced zero Target-labeled
// intervals. User-actionable: lower the similarity threshold or verify the
// target reference sample.
var ErrNoTargetSegments = errors.New("no target segments found")
