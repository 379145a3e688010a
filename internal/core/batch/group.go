// Package batch implements deferred event batches shared between a
// simulation goroutine (producer) and a render goroutine (consumer).
//
// The producer records changes into pending sets without locking. Once per
// tick it calls Delay, which moves pending entries into a staged snapshot
// while holding the category lock. The consumer calls Execute under the same
// lock to dispatch the staged snapshot, and for owning lifecycle batches
// Destroy frees the objects whose Destroyed notification was delivered.
package batch

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// stage is the per-batch surface a Group drives while holding its lock.
type stage interface {
	delay()
	execute()
	destroy()
	lifecycle() bool
	pending() int
	backlog() Backlog
}

// eventStage is a stage with separate created and destroyed dispatch.
type eventStage interface {
	stage
	dispatchAdded()
	dispatchRemoved()
}

// Backlog counts the consumer-visible entries of a batch or group.
type Backlog struct {
	Staged  int
	Garbage int
}

func (b Backlog) add(o Backlog) Backlog {
	return Backlog{Staged: b.Staged + o.Staged, Garbage: b.Garbage + o.Garbage}
}

// Group owns the lock of one object category and every batch registered to
// it. All batches of a group share the group's mutex.
type Group struct {
	name    string
	mu      sync.Mutex
	log     *zap.Logger
	strict  bool
	batches []stage
}

// NewGroup creates an empty group. In strict mode contract violations
// panic; otherwise they are logged and the offending call is ignored.
func NewGroup(name string, log *zap.Logger, strict bool) *Group {
	if log == nil {
		log = zap.NewNop()
	}
	return &Group{
		name:    name,
		log:     log.With(zap.String("category", name)),
		strict:  strict,
		batches: make([]stage, 0, 4),
	}
}

func (g *Group) Name() string { return g.name }

// Lock and Unlock expose the category lock to callers that need to hold it
// across more than one group operation.
func (g *Group) Lock()   { g.mu.Lock() }
func (g *Group) Unlock() { g.mu.Unlock() }

func (g *Group) register(s stage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.batches = append(g.batches, s)
}

// Delay stages the pending entries of every batch. Producer only; call once
// per tick.
func (g *Group) Delay() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.batches {
		b.delay()
	}
}

// Execute dispatches every staged snapshot in registration order, then runs
// Destroy on the lifecycle batches. Consumer only.
func (g *Group) Execute() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.batches {
		b.execute()
	}
	for _, b := range g.batches {
		if b.lifecycle() {
			b.destroy()
		}
	}
}

// Flush runs a full delay, execute, destroy pass synchronously. Creations
// are announced first, then state and move batches, then removals, so an
// object's state changes fall between its Created and Destroyed whatever
// the category's order. Removes held back behind an unannounced Created are
// delivered in the same call. Used for teardown outside the normal tick
// cadence; call it from the producer, or once the producer has stopped.
func (g *Group) Flush() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.batches {
		b.delay()
	}
	for _, b := range g.batches {
		if e, ok := b.(eventStage); ok {
			e.dispatchAdded()
		}
	}
	for _, b := range g.batches {
		if _, ok := b.(eventStage); !ok {
			b.execute()
		}
	}
	for _, b := range g.batches {
		if e, ok := b.(eventStage); ok {
			e.dispatchRemoved()
			if b.pending() > 0 {
				b.delay()
				b.execute()
			}
		}
	}
	for _, b := range g.batches {
		if b.lifecycle() {
			b.destroy()
		}
	}
	g.log.Debug("event batch flushed")
}

// Pending reports the number of entries not yet staged. Producer only.
func (g *Group) Pending() int {
	n := 0
	for _, b := range g.batches {
		n += b.pending()
	}
	return n
}

// Backlog reports staged and garbage counts. Safe from any goroutine.
func (g *Group) Backlog() Backlog {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out Backlog
	for _, b := range g.batches {
		out = out.add(b.backlog())
	}
	return out
}

// Empty reports whether nothing is pending, staged or awaiting free. Only
// meaningful once the producer has stopped.
func (g *Group) Empty() bool {
	return g.Pending() == 0 && g.Backlog() == Backlog{}
}

// violation reports a contract breach by the caller.
func (g *Group) violation(msg string, fields ...zap.Field) {
	if g.strict {
		panic(fmt.Sprintf("batch %s: %s", g.name, msg))
	}
	g.log.Warn(msg, fields...)
}
