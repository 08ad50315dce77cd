package provider

import (
	"os"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/projfs-go/projfs/common"
	"github.com/projfs-go/projfs/driver"
)

// Instance is the VirtualizationInstance from spec.md §3: one per provider
// process, owning at most one live projection session at a time.
type Instance struct {
	mu       sync.RWMutex
	session  *driver.Session
	virtRoot string

	ownPID   int32
	provider Provider

	sem *semaphore.Weighted
}

// NewInstance creates an inert instance bound to the given callback set.
// Callback slots must be assigned before Start, matching spec.md §3's
// lifecycle note.
func NewInstance(p Provider) *Instance {
	return &Instance{
		ownPID:   int32(os.Getpid()),
		provider: p,
	}
}

// DefaultPoolThreads returns the provider's recommended worker-thread count:
// 2x logical CPU count (spec.md §5).
func DefaultPoolThreads() int {
	return 2 * runtime.NumCPU()
}

// Start allocates and mounts a projection session (spec.md §4.6).
//
// It holds the instance's lock for the full mount-wait loop: no handler can
// observe a half-initialized instance, and any event that arrives before
// the mount is confirmed simply waits for Start to finish (at which point
// the session is either live or Start has failed and stopped it again).
func (inst *Instance) Start(storageRoot, virtRoot string, poolThreads int, initializeStorageRoot bool) common.Result {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.session != nil {
		return common.InvalidState
	}

	fi, err := os.Stat(virtRoot)
	if err != nil {
		return common.Invalid
	}
	priorDev := deviceID(fi)

	if poolThreads <= 0 {
		poolThreads = DefaultPoolThreads()
	}

	handlers := driver.Handlers{
		Projection:   inst.onDemand,
		Notification: func(ev *common.Event) int { return inst.handleNonProj(ev, false) },
		Permission:   func(ev *common.Event) int { return inst.handleNonProj(ev, true) },
	}
	opts := common.SessionOptions{
		InitializeStorageRoot: initializeStorageRoot,
		PoolThreads:           poolThreads,
	}

	sess := driver.New(storageRoot, virtRoot, handlers, opts)
	if sess == nil {
		return common.Invalid
	}
	if rc := sess.Start(); rc != 0 {
		sess.Stop()
		return common.Invalid
	}

	if !waitForMount(virtRoot, priorDev, common.MountWaitPollInterval, common.MountWaitTimeout) {
		sess.Stop()
		return common.Invalid
	}

	inst.virtRoot = virtRoot
	inst.session = sess
	inst.sem = semaphore.NewWeighted(int64(poolThreads))
	return common.Success
}

// Stop releases the session if one is live; idempotent otherwise.
//
// Stop takes the instance lock, so it waits for a Start in progress and for
// any handler that is reading the session handle at that moment. It does not
// wait for handlers that have already read the handle to return.
func (inst *Instance) Stop() {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.session != nil {
		inst.session.Stop()
		inst.session = nil
	}
}

// waitForMount polls virtRoot every interval until its device id changes
// from priorDev, or timeout elapses (spec.md §4.6 step 6). The interval and
// timeout are parameterized (rather than hardcoded to the spec's 200ms/30s)
// so tests can exercise the timeout path without an actual 30-second wait.
func waitForMount(virtRoot string, priorDev uint64, interval, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		<-ticker.C
		fi, err := os.Stat(virtRoot)
		if err == nil && deviceID(fi) != priorDev {
			return true
		}
	}
	return false
}

func deviceID(fi os.FileInfo) uint64 {
	sys, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(sys.Dev)
}

// currentSession is the single guarded read every handler and placeholder
// method performs before touching the session (spec.md §5).
func (inst *Instance) currentSession() *driver.Session {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.session
}
