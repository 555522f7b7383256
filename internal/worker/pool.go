package worker

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
)

type Task func(ctx context.Context)

// Pool runs tasks on a fixed set of goroutines fed by a bounded queue.
// Submit never blocks: when the queue is full it returns ErrBusy and the
// caller decides what to do with the rejected task.
type Pool struct {
	queue   chan Task
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	p := &Pool{queue: make(chan Task, queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run(i)
	}
	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for task := range p.queue {
		p.exec(id, task)
	}
}

func (p *Pool) exec(id int, task Task) {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			logutil.GetLogger(ctx).Error("task panicked",
				zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	task(ctx)
}

// Submit holds the read lock across the send so Stop cannot close the
// queue between the stopped check and the send.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return appErr.ErrBusy
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return appErr.ErrBusy
	}
}

// Stop drains the queue and waits for in-flight tasks. Submit rejects
// tasks once Stop has been called.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}
