package chunker

import "errors"

// ErrCorruptManifest means the block sequence being reassembled
// violates the manifest invariant (gap, duplicate, or lost payload).
// It should never occur while invariants hold and is always logged
// loudly by callers.
var ErrCorruptManifest = errors.New("corrupt manifest")
