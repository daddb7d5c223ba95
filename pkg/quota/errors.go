package quota

import "errors"

// ErrQuotaExceeded means the write would push the user's aggregate
// stored size past their allowance. Rejected before any side effect.
var ErrQuotaExceeded = errors.New("user quota exceeded")
