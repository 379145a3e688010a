package batch

import "fmt"

// LifecycleBatch is an EventBatch for created/destroyed notifications that
// also knows whether it owns the objects it reports.
//
// For an owning batch, Execute hands every removed ref to the garbage set
// after its Destroyed notification, and Destroy frees the garbage set. The
// garbage set is the only path to free, so an object is never freed before
// the consumer has been told it is gone.
type LifecycleBatch[T comparable] struct {
	*EventBatch[T]

	free    func(T)
	garbage []T // guarded by g.mu
}

// NewLifecycleBatch creates a lifecycle batch in group g. free is required
// when policy.Owning is set and ignored otherwise.
func NewLifecycleBatch[T comparable](g *Group, policy Policy, sink Sink[T], free func(T)) *LifecycleBatch[T] {
	if policy.Owning && free == nil {
		panic(fmt.Sprintf("batch %s: owning lifecycle batch without deallocator", g.name))
	}
	b := &LifecycleBatch[T]{EventBatch: newEventBatch(g, policy, sink)}
	if policy.Owning {
		b.free = free
		b.EventBatch.retire = b.collect
	}
	g.register(b)
	return b
}

func (b *LifecycleBatch[T]) collect(ref T) {
	b.garbage = append(b.garbage, ref)
}

// Destroy frees every object whose Destroyed notification has been
// delivered. A no-op for non-owning batches. Consumer only.
func (b *LifecycleBatch[T]) Destroy() {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	b.destroy()
}

// CollectGarbage is an alias of Destroy.
func (b *LifecycleBatch[T]) CollectGarbage() { b.Destroy() }

func (b *LifecycleBatch[T]) destroy() {
	if len(b.garbage) == 0 {
		return
	}
	for _, ref := range b.garbage {
		b.free(ref)
	}
	clear(b.garbage)
	b.garbage = b.garbage[:0]
}

func (b *LifecycleBatch[T]) lifecycle() bool { return true }

func (b *LifecycleBatch[T]) backlog() Backlog {
	out := b.EventBatch.backlog()
	out.Garbage = len(b.garbage)
	return out
}

// Garbage reports objects awaiting Destroy.
func (b *LifecycleBatch[T]) Garbage() int {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	return len(b.garbage)
}
