package room

import (
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// mirrorPool runs durable vote writes on a bounded conc pool. A conc pool
// cannot be reused after Wait, so Wait swaps in a fresh one before draining
// the old.
type mirrorPool struct {
	mu      sync.Mutex
	workers int
	p       *pool.Pool
}

func newMirrorPool(workers int) *mirrorPool {
	return &mirrorPool{
		workers: workers,
		p:       pool.New().WithMaxGoroutines(workers),
	}
}

func (m *mirrorPool) Go(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.p.Go(f)
}

// Wait blocks until every task submitted before the call has finished.
func (m *mirrorPool) Wait() {
	m.mu.Lock()
	p := m.p
	m.p = pool.New().WithMaxGoroutines(m.workers)
	m.mu.Unlock()

	p.Wait()
}
