package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Queue interface {
	// EnqueueAt schedules task to become due at the given time.
	EnqueueAt(ctx context.Context, task Task, at time.Time) error
	// Dequeue removes and returns one due task, or nil when none is due.
	Dequeue(ctx context.Context) (*Task, error)
	DeadLetter(ctx context.Context, task Task) error
}

type scheduledTask struct {
	task Task
	due  time.Time
}

type MemoryQueue struct {
	mu    sync.Mutex
	items []scheduledTask
	dead  []Task
	now   func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{now: time.Now}
}

func (q *MemoryQueue) EnqueueAt(_ context.Context, task Task, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, scheduledTask{task: task, due: at})
	sort.SliceStable(q.items, func(i, j int) bool { return q.items[i].due.Before(q.items[j].due) })
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 || q.items[0].due.After(q.now()) {
		return nil, nil
	}

	task := q.items[0].task
	q.items = q.items[1:]
	return &task, nil
}

func (q *MemoryQueue) DeadLetter(_ context.Context, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.dead = append(q.dead, task)
	return nil
}

func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *MemoryQueue) Dead() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Task, len(q.dead))
	copy(out, q.dead)
	return out
}
