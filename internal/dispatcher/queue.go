package dispatcher

import (
	"sync"

	"github.com/nyxbook/matchcore/internal/common"
)

// symbolQueue is the FIFO a single symbol's worker drains. Push appends
// to the tail by default; preempt moves a command to the head instead,
// so commands without a price (market orders, cancels) jump ahead of
// resting limit-order submissions already waiting for that symbol's
// worker.
//
// wake is a capacity-1 signal channel rather than a sync.Cond so the
// worker loop can select on it alongside the tomb's Dying() channel;
// sync.Cond has no way to wait on two things at once.
type symbolQueue struct {
	mu    sync.Mutex
	items []*common.Order
	wake  chan struct{}
}

func newSymbolQueue() *symbolQueue {
	return &symbolQueue{wake: make(chan struct{}, 1)}
}

func (q *symbolQueue) push(order *common.Order, preempt bool) {
	q.mu.Lock()
	if preempt {
		q.items = append(q.items, nil)
		copy(q.items[1:], q.items)
		q.items[0] = order
	} else {
		q.items = append(q.items, order)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *symbolQueue) tryPop() (*common.Order, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	order := q.items[0]
	q.items = q.items[1:]
	return order, true
}

func (q *symbolQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
