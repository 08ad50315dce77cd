package provider

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"golang.org/x/sync/semaphore"
)

// TestDispatchConcurrencyIsBoundedByPoolThreads covers Testable Property 13:
// with pool_threads = N, 2N goroutines that each take a dispatch slot through
// acquireSlot and hold it for a while never have more than N holders at once.
func TestDispatchConcurrencyIsBoundedByPoolThreads(t *testing.T) {
	const poolThreads = 3
	const fanout = 2 * poolThreads

	inst := NewInstance(Provider{})
	inst.sem = semaphore.NewWeighted(poolThreads)

	var inFlight, maxInFlight int64
	var wg sync.WaitGroup
	wg.Add(fanout)
	for i := 0; i < fanout; i++ {
		go func() {
			defer wg.Done()
			release := inst.acquireSlot()
			defer release()

			n := atomic.AddInt64(&inFlight, 1)
			for {
				max := atomic.LoadInt64(&maxInFlight)
				if n <= max || atomic.CompareAndSwapInt64(&maxInFlight, max, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxInFlight, int64(poolThreads))
}

func TestAcquireSlotIsNoopWithoutSemaphore(t *testing.T) {
	inst := NewInstance(Provider{})
	release := inst.acquireSlot()
	assert.NotPanics(t, func() { release() })
}
