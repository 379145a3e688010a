package batch

import "go.uber.org/zap"

// Sink receives the lifecycle notifications of one batch.
type Sink[T any] interface {
	Created(ref T)
	Destroyed(ref T)
}

// SinkFuncs adapts a pair of functions to Sink. Nil fields are skipped.
type SinkFuncs[T any] struct {
	OnCreated   func(T)
	OnDestroyed func(T)
}

func (s SinkFuncs[T]) Created(ref T) {
	if s.OnCreated != nil {
		s.OnCreated(ref)
	}
}

func (s SinkFuncs[T]) Destroyed(ref T) {
	if s.OnDestroyed != nil {
		s.OnDestroyed(ref)
	}
}

// EventBatch tracks objects added or removed since the last Delay.
//
// Add and Remove write only the pending sets and take no lock; they must be
// called from the producer alone. Delay is the producer's only
// synchronisation point. Execute runs on the consumer.
type EventBatch[T comparable] struct {
	g      *Group
	policy Policy
	sink   Sink[T]

	// producer only
	pendingAdd    []T
	pendingRemove []T
	removing      map[T]struct{}

	// guarded by g.mu
	stagedAdd    []T
	stagedRemove []T

	// retire receives removed refs after their Destroyed notification, and
	// collapsed refs at Delay. Called with g.mu held.
	retire func(T)
}

// NewEventBatch creates a batch in group g and registers it there.
func NewEventBatch[T comparable](g *Group, policy Policy, sink Sink[T]) *EventBatch[T] {
	b := newEventBatch(g, policy, sink)
	g.register(b)
	return b
}

func newEventBatch[T comparable](g *Group, policy Policy, sink Sink[T]) *EventBatch[T] {
	if sink == nil {
		sink = SinkFuncs[T]{}
	}
	return &EventBatch[T]{
		g:        g,
		policy:   policy,
		sink:     sink,
		removing: make(map[T]struct{}),
	}
}

func (b *EventBatch[T]) Policy() Policy { return b.policy }

// Add records ref as created. Producer only.
func (b *EventBatch[T]) Add(ref T) {
	b.pendingAdd = append(b.pendingAdd, ref)
}

// Remove records ref as destroyed. Producer only. A ref that was never
// added is accepted. Removing the same ref twice before Delay is a
// contract violation and the second call is dropped.
func (b *EventBatch[T]) Remove(ref T) {
	if _, dup := b.removing[ref]; dup {
		b.g.violation("object removed twice before delay", zap.Any("object", ref))
		return
	}
	b.removing[ref] = struct{}{}
	b.pendingRemove = append(b.pendingRemove, ref)
}

// Delay stages the pending sets. Producer only.
func (b *EventBatch[T]) Delay() {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	b.delay()
}

// Execute dispatches the staged snapshot. Consumer only.
func (b *EventBatch[T]) Execute() {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	b.execute()
}

func (b *EventBatch[T]) delay() {
	if len(b.pendingAdd) == 0 && len(b.pendingRemove) == 0 {
		return
	}
	if b.policy.CollapseTransient {
		b.collapse()
	}
	b.stagedAdd, b.pendingAdd = stageSlice(b.stagedAdd, b.pendingAdd)
	if len(b.stagedRemove) > 0 {
		b.pendingRemove = b.dropStagedRemoves(b.pendingRemove)
	}
	var held []T
	if b.policy.Order == OrderRemoveFirst {
		b.pendingRemove, held = b.holdUnannounced(b.pendingRemove)
	}
	b.stagedRemove, b.pendingRemove = stageSlice(b.stagedRemove, b.pendingRemove)
	clear(b.removing)
	for _, ref := range held {
		b.pendingRemove = append(b.pendingRemove, ref)
		b.removing[ref] = struct{}{}
	}
}

// holdUnannounced splits off removes of refs whose Created is still in the
// staged snapshot. Under remove-first they would be reported destroyed
// before created, so they stay pending until the snapshot has executed.
func (b *EventBatch[T]) holdUnannounced(pending []T) (kept, held []T) {
	if len(b.stagedAdd) == 0 || len(pending) == 0 {
		return pending, nil
	}
	staged := make(map[T]struct{}, len(b.stagedAdd))
	for _, ref := range b.stagedAdd {
		staged[ref] = struct{}{}
	}
	kept = pending[:0]
	for _, ref := range pending {
		if _, ok := staged[ref]; ok {
			held = append(held, ref)
			continue
		}
		kept = append(kept, ref)
	}
	clear(pending[len(kept):])
	return kept, held
}

// dropStagedRemoves filters refs whose removal is already staged but not
// yet executed, so a snapshot never carries the same Destroyed twice.
func (b *EventBatch[T]) dropStagedRemoves(pending []T) []T {
	staged := make(map[T]struct{}, len(b.stagedRemove))
	for _, ref := range b.stagedRemove {
		staged[ref] = struct{}{}
	}
	kept := pending[:0]
	for _, ref := range pending {
		if _, dup := staged[ref]; dup {
			b.g.violation("object removed again before execute", zap.Any("object", ref))
			continue
		}
		kept = append(kept, ref)
	}
	clear(pending[len(kept):])
	return kept
}

// collapse drops refs that were both added and removed in this window.
func (b *EventBatch[T]) collapse() {
	if len(b.pendingAdd) == 0 || len(b.pendingRemove) == 0 {
		return
	}
	transient := make(map[T]struct{})
	for _, ref := range b.pendingAdd {
		if _, ok := b.removing[ref]; ok {
			transient[ref] = struct{}{}
		}
	}
	if len(transient) == 0 {
		return
	}
	b.pendingAdd = filterOut(b.pendingAdd, transient)
	b.pendingRemove = filterOut(b.pendingRemove, transient)
	if b.retire != nil {
		for ref := range transient {
			b.retire(ref)
		}
	}
}

func (b *EventBatch[T]) execute() {
	if b.policy.Order == OrderRemoveFirst {
		b.dispatchRemoved()
		b.dispatchAdded()
		return
	}
	b.dispatchAdded()
	b.dispatchRemoved()
}

func (b *EventBatch[T]) dispatchAdded() {
	for _, ref := range b.stagedAdd {
		b.sink.Created(ref)
	}
	clear(b.stagedAdd)
	b.stagedAdd = b.stagedAdd[:0]
}

func (b *EventBatch[T]) dispatchRemoved() {
	for _, ref := range b.stagedRemove {
		b.sink.Destroyed(ref)
		if b.retire != nil {
			b.retire(ref)
		}
	}
	clear(b.stagedRemove)
	b.stagedRemove = b.stagedRemove[:0]
}

func (b *EventBatch[T]) destroy() {}

func (b *EventBatch[T]) lifecycle() bool { return false }

func (b *EventBatch[T]) pending() int { return len(b.pendingAdd) + len(b.pendingRemove) }

func (b *EventBatch[T]) backlog() Backlog {
	return Backlog{Staged: len(b.stagedAdd) + len(b.stagedRemove)}
}

// Pending reports unstaged entries. Producer only.
func (b *EventBatch[T]) Pending() int { return b.pending() }

// Staged reports entries waiting for Execute.
func (b *EventBatch[T]) Staged() int {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	return b.backlog().Staged
}

// stageSlice moves pending into staged. When staged has been consumed the
// backing arrays are swapped; otherwise pending is appended so an
// unexecuted snapshot is never lost. The returned pending slice is empty.
func stageSlice[T any](staged, pending []T) ([]T, []T) {
	if len(staged) == 0 {
		return pending, staged[:0]
	}
	staged = append(staged, pending...)
	clear(pending)
	return staged, pending[:0]
}

func filterOut[T comparable](refs []T, drop map[T]struct{}) []T {
	kept := refs[:0]
	for _, ref := range refs {
		if _, ok := drop[ref]; ok {
			continue
		}
		kept = append(kept, ref)
	}
	clear(refs[len(kept):])
	return kept
}
