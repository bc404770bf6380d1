package listview

import (
	"sync"
	"sync/atomic"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/listdirector/pkg/director"
)

// taskMsg wakes Update to drain posted work.
type taskMsg struct{}

// loopQueue marshals work onto the bubbletea update loop. Posted tasks are
// buffered without limit and run in order from Update.
//
// Go exposes no goroutine identity, so Owns reports true while Update is
// running, and before the program has started (setup happens on the caller's
// goroutine then). A goroutine that calls in while Update runs is not caught.
type loopQueue struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	started atomic.Bool
	inLoop  atomic.Bool
}

var _ director.Queue = (*loopQueue)(nil)

func newLoopQueue() *loopQueue {
	return &loopQueue{wake: make(chan struct{}, 1)}
}

func (q *loopQueue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *loopQueue) Owns() bool {
	return !q.started.Load() || q.inLoop.Load()
}

// drain runs everything posted so far, including tasks posted by those tasks.
func (q *loopQueue) drain() int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

func (q *loopQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// wait blocks until something is posted.
func (q *loopQueue) wait() tea.Cmd {
	return func() tea.Msg {
		<-q.wake
		return taskMsg{}
	}
}
