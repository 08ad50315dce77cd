package common

import "time"

// SessionOptions carries the construction-time knobs for a projection-driver
// session (spec.md §4.2 `options`).
type SessionOptions struct {
	// InitializeStorageRoot requests first-time storage initialization
	// (the "initial" flag from spec.md §4.2).
	InitializeStorageRoot bool
	// PoolThreads is the number of driver worker threads to request; the
	// provider recommends 2x logical CPU count (spec.md §5).
	PoolThreads int
}

// Default mount-wait tuning (spec.md §4.6 step 6).
const (
	MountWaitPollInterval = 200 * time.Millisecond
	MountWaitTimeout      = 30 * time.Second
)
