package services

import (
	"context"
	"sync"
	"sync/atomic"
)

// InstanceLocks serializes work per instance id. It uses one single-slot
// channel semaphore per id, created on demand and dropped once no caller
// holds or waits for it.
type InstanceLocks struct {
	mu     sync.Mutex
	slots  map[string]*instanceSlot
	active atomic.Int64
}

type instanceSlot struct {
	ch   chan struct{}
	refs int
}

// NewInstanceLocks creates an empty lock table.
func NewInstanceLocks() *InstanceLocks {
	return &InstanceLocks{slots: make(map[string]*instanceSlot)}
}

// Lock blocks until the slot for id is free, or returns the context error
// if ctx is cancelled first. The returned func releases the slot.
func (l *InstanceLocks) Lock(ctx context.Context, id string) (func(), error) {
	slot := l.acquireRef(id)

	select {
	case slot.ch <- struct{}{}:
		l.active.Add(1)
	case <-ctx.Done():
		l.releaseRef(id)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.active.Add(-1)
			<-slot.ch
			l.releaseRef(id)
		})
	}, nil
}

// Held returns the number of currently held locks.
func (l *InstanceLocks) Held() int {
	return int(l.active.Load())
}

func (l *InstanceLocks) acquireRef(id string) *instanceSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &instanceSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	return slot
}

func (l *InstanceLocks) releaseRef(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[id]
	if !ok {
		return
	}
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}
