package task

// taskQueue is the FIFO of tasks waiting for an idle worker. It is owned by
// the supervisor goroutine and is not safe for concurrent use.
type taskQueue struct {
	items []*task
	head  int
}

// compactThreshold is how many consumed slots may accumulate at the front
// before the backing slice is shifted down.
const compactThreshold = 64

func newTaskQueue(size int) *taskQueue {
	return &taskQueue{
		items: make([]*task, 0, size),
	}
}

// Enqueue appends a task to the back of the queue.
func (q *taskQueue) Enqueue(t *task) {
	q.items = append(q.items, t)
}

// Dequeue removes and returns the task at the front of the queue.
// The second result is false when the queue is empty.
func (q *taskQueue) Dequeue() (*task, bool) {
	if q.head >= len(q.items) {
		return nil, false
	}
	t := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	q.compact()
	return t, true
}

// Remove deletes the queued task with the given id, preserving the order of
// the others.
func (q *taskQueue) Remove(id uint64) (*task, bool) {
	for i := q.head; i < len(q.items); i++ {
		if q.items[i].id != id {
			continue
		}
		t := q.items[i]
		copy(q.items[i:], q.items[i+1:])
		q.items[len(q.items)-1] = nil
		q.items = q.items[:len(q.items)-1]
		q.compact()
		return t, true
	}
	return nil, false
}

// Drain removes and returns every queued task in FIFO order.
func (q *taskQueue) Drain() []*task {
	out := make([]*task, 0, q.Len())
	for {
		t, ok := q.Dequeue()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	return len(q.items) - q.head
}

func (q *taskQueue) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head < compactThreshold || q.head < len(q.items)/2 {
		return
	}
	n := copy(q.items, q.items[q.head:])
	for i := n; i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = q.items[:n]
	q.head = 0
}
