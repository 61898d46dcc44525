package worker

import (
	"context"
	"sync"

	"github.com/snapngo/snapngo/pkg/log"
	"github.com/sourcegraph/conc/panics"
)

// Pool bounds concurrent event handlers using a semaphore. A handler that
// panics is logged and releases its slot; it never takes the pool down.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Submit blocks until a slot is free or ctx is done, then runs fn on its
// own goroutine. name identifies the work in logs.
func (p *Pool) Submit(ctx context.Context, name string, fn func(context.Context)) error {
	select {
	case p.sem <- struct{}{}:
		p.wg.Add(1)
		go func() {
			defer func() {
				<-p.sem
				p.wg.Done()
			}()

			var catcher panics.Catcher
			catcher.Try(func() { fn(ctx) })
			if r := catcher.Recovered(); r != nil {
				log.Error("worker panic", "work", name, "error", r.AsError())
			}
		}()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size reports the number of concurrent slots.
func (p *Pool) Size() int {
	return cap(p.sem)
}

func (p *Pool) Wait() {
	p.wg.Wait()
}
