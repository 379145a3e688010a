package batch

// StateSink receives state-change notifications.
type StateSink[T, P any] interface {
	StateChanged(ref T, payload P)
}

// StateFunc adapts a function to StateSink.
type StateFunc[T, P any] func(ref T, payload P)

func (f StateFunc[T, P]) StateChanged(ref T, payload P) { f(ref, payload) }

// StateBatch carries a payload per object. Repeated updates of one object
// before Execute keep only the last payload. Dispatch follows first-update
// order. State batches never own the objects they report.
type StateBatch[T comparable, P any] struct {
	g    *Group
	sink StateSink[T, P]

	// producer only
	pendingSet   map[T]P
	pendingOrder []T

	// guarded by g.mu
	staged      map[T]P
	stagedOrder []T
}

// NewStateBatch creates a state batch in group g and registers it there.
func NewStateBatch[T comparable, P any](g *Group, sink StateSink[T, P]) *StateBatch[T, P] {
	b := &StateBatch[T, P]{
		g:          g,
		sink:       sink,
		pendingSet: make(map[T]P),
		staged:     make(map[T]P),
	}
	g.register(b)
	return b
}

// Update records payload as the latest state of ref. Producer only.
func (b *StateBatch[T, P]) Update(ref T, payload P) {
	if _, ok := b.pendingSet[ref]; !ok {
		b.pendingOrder = append(b.pendingOrder, ref)
	}
	b.pendingSet[ref] = payload
}

// Delay stages pending updates. Producer only.
func (b *StateBatch[T, P]) Delay() {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	b.delay()
}

// Execute dispatches staged updates. Consumer only.
func (b *StateBatch[T, P]) Execute() {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	b.execute()
}

func (b *StateBatch[T, P]) delay() {
	if len(b.pendingSet) == 0 {
		return
	}
	if len(b.staged) == 0 {
		b.staged, b.pendingSet = b.pendingSet, b.staged
		b.stagedOrder, b.pendingOrder = b.pendingOrder, b.stagedOrder[:0]
		return
	}
	for _, ref := range b.pendingOrder {
		if _, ok := b.staged[ref]; !ok {
			b.stagedOrder = append(b.stagedOrder, ref)
		}
		b.staged[ref] = b.pendingSet[ref]
	}
	clear(b.pendingSet)
	clear(b.pendingOrder)
	b.pendingOrder = b.pendingOrder[:0]
}

func (b *StateBatch[T, P]) execute() {
	if len(b.stagedOrder) == 0 {
		return
	}
	for _, ref := range b.stagedOrder {
		b.sink.StateChanged(ref, b.staged[ref])
	}
	clear(b.staged)
	clear(b.stagedOrder)
	b.stagedOrder = b.stagedOrder[:0]
}

func (b *StateBatch[T, P]) destroy() {}

func (b *StateBatch[T, P]) lifecycle() bool { return false }

func (b *StateBatch[T, P]) pending() int { return len(b.pendingOrder) }

func (b *StateBatch[T, P]) backlog() Backlog { return Backlog{Staged: len(b.stagedOrder)} }

// Pending reports unstaged objects. Producer only.
func (b *StateBatch[T, P]) Pending() int { return b.pending() }

// MoveSink receives moved notifications; the receiver re-reads position
// from the object itself.
type MoveSink[T any] interface {
	Moved(ref T)
}

// MoveFunc adapts a function to MoveSink.
type MoveFunc[T any] func(ref T)

func (f MoveFunc[T]) Moved(ref T) { f(ref) }

// MoveBatch reports each moved object at most once per snapshot.
type MoveBatch[T comparable] struct {
	*StateBatch[T, struct{}]
}

type moveAdapter[T any] struct{ sink MoveSink[T] }

func (a moveAdapter[T]) StateChanged(ref T, _ struct{}) { a.sink.Moved(ref) }

// NewMoveBatch creates a move batch in group g and registers it there.
func NewMoveBatch[T comparable](g *Group, sink MoveSink[T]) *MoveBatch[T] {
	return &MoveBatch[T]{StateBatch: NewStateBatch[T, struct{}](g, moveAdapter[T]{sink: sink})}
}

// Add records ref as moved. Producer only.
func (b *MoveBatch[T]) Add(ref T) {
	b.Update(ref, struct{}{})
}
