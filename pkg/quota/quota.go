package quota

import (
	"fmt"
	"sync"

	"blocknet/pkg/types"
)

// DefaultUserQuota is the free allowance every user starts with.
const DefaultUserQuota = 2 * 1024 * 1024 * 1024 // 2GiB

// Accountant tracks aggregate stored bytes per user against their
// quota. Reserve and Release are atomic, so two concurrent writes that
// only fit individually can never both be admitted.
type Accountant struct {
	mu           sync.Mutex
	defaultQuota int64
	extra        map[types.UserID]int64
	used         map[types.UserID]int64
}

func NewAccountant(defaultQuota int64) *Accountant {
	if defaultQuota <= 0 {
		defaultQuota = DefaultUserQuota
	}
	return &Accountant{
		defaultQuota: defaultQuota,
		extra:        make(map[types.UserID]int64),
		used:         make(map[types.UserID]int64),
	}
}

// Reserve charges size bytes to the user before any chunk is
// persisted. It fails with ErrQuotaExceeded without side effects when
// the user's aggregate would pass their allowance.
func (a *Accountant) Reserve(user types.UserID, size int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	allowed := a.defaultQuota + a.extra[user]
	if a.used[user]+size > allowed {
		return fmt.Errorf("%w: user %s (used %d + %d > allowed %d)",
			ErrQuotaExceeded, user, a.used[user], size, allowed)
	}

	a.used[user] += size
	return nil
}

// Release returns size bytes to the user, after a file delete or a
// rolled-back write.
func (a *Accountant) Release(user types.UserID, size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.used[user] -= size
	if a.used[user] < 0 {
		a.used[user] = 0
	}
}

// GrantExtra raises the user's allowance above the default. Admin
// operation.
func (a *Accountant) GrantExtra(user types.UserID, size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.extra[user] += size
}

// Usage reports the user's current aggregate and allowance.
func (a *Accountant) Usage(user types.UserID) (used, allowed int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used[user], a.defaultQuota + a.extra[user]
}
