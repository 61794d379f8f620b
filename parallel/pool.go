package parallel

import (
	"runtime"
	"sync"
)

type (
	WorkerFunc func(func())
	WaitFunc   func(done bool)
	CancelFunc func()
)

// Pool runs queued closures on a fixed set of goroutines. Wait(false) is a
// barrier for everything queued so far; Wait(true) also stops the workers,
// after which Do must not be called.
type Pool struct {
	wg      sync.WaitGroup
	batch   sync.WaitGroup
	workers int
	Do      WorkerFunc
	Wait    WaitFunc
	Cancel  CancelFunc
}

func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		workers: numWorkers,
		Do: func(f func()) {
			f()
		},
		Wait:   func(bool) {},
		Cancel: func() {},
	}

	if numWorkers > 1 {
		workChan := make(chan func(), numWorkers)

		for range numWorkers {
			pool.wg.Go(func() {
				for {
					f, ok := <-workChan
					if !ok {
						return
					}
					f()
				}
			})
		}

		pool.Do = func(f func()) {
			pool.batch.Add(1)
			workChan <- func() {
				defer pool.batch.Done()
				f()
			}
		}

		pool.Wait = func(done bool) {
			pool.batch.Wait()
			if done {
				pool.Cancel()
				pool.wg.Wait()
			}
		}
		pool.Cancel = sync.OnceFunc(func() { close(workChan) })
	}

	return pool
}

// Workers reports how many goroutines serve the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// Rows splits [0, n) into contiguous bands, runs fn on each band and waits
// for all of them. Bands never overlap.
func (p *Pool) Rows(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	bands := min(n, p.workers*4)
	size := (n + bands - 1) / bands
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		p.Do(func() { fn(lo, hi) })
	}
	p.Wait(false)
}
