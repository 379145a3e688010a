// Package eventbatch owns one set of event batches per object category and
// sequences them between the simulation goroutine and the render goroutine.
//
// The simulation side works through a Producer handle: it records changes
// during a tick and calls OnSimulationTick at tick end. The render side
// works through a Consumer handle and calls OnRenderFrame once per frame.
// Each category has its own lock, held by the producer only while staging
// and by the consumer for its whole pass over that category.
package eventbatch

import (
	"errors"
	"fmt"

	"github.com/l1jgo/eventbatch/internal/config"
	"github.com/l1jgo/eventbatch/internal/core/batch"
	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"go.uber.org/zap"
)

var (
	ErrUnknownCategory = errors.New("unknown event category")
	ErrNoDeallocator   = errors.New("owning category without deallocator")
)

// Observer receives notifications on the consumer side. Calls for one
// category never overlap; calls for different categories may.
type Observer interface {
	Created(c Category, id ecs.ObjectID)
	Destroyed(c Category, id ecs.ObjectID)
	Moved(c Category, id ecs.ObjectID)
	StateChanged(c Category, kind StateKind, id ecs.ObjectID, data int32)
}

// Deallocator frees objects of owning categories once their Destroyed
// notification has been delivered. No other subsystem may free them.
type Deallocator interface {
	Free(c Category, id ecs.ObjectID)
}

// DeallocatorFunc adapts a function to Deallocator.
type DeallocatorFunc func(c Category, id ecs.ObjectID)

func (f DeallocatorFunc) Free(c Category, id ecs.ObjectID) { f(c, id) }

type category struct {
	cat       Category
	group     *batch.Group
	lifecycle *batch.LifecycleBatch[ecs.ObjectID]
	moved     *batch.MoveBatch[ecs.ObjectID]
	states    [numStateKinds]*batch.StateBatch[ecs.ObjectID, int32]
}

// Handler is the batch registry of one simulation session.
type Handler struct {
	cats [numCategories]*category
	log  *zap.Logger
}

// New builds every category from cfg. Each category starts from
// DefaultPolicy and takes the overrides cfg sets for it. dealloc may be nil only if no category is owning.
func New(cfg config.BatchingConfig, obs Observer, dealloc Deallocator, log *zap.Logger) (*Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	policies, err := policiesFrom(cfg)
	if err != nil {
		return nil, err
	}
	h := &Handler{log: log}
	for _, c := range Categories() {
		p := policies[c]
		if p.Owning && dealloc == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoDeallocator, c)
		}
		h.cats[c] = newCategory(c, p, cfg.Strict, obs, dealloc, log)
		log.Debug("event category registered",
			zap.Stringer("category", c),
			zap.Bool("owning", p.Owning),
			zap.Stringer("order", p.Order),
			zap.Bool("collapse_transient", p.CollapseTransient))
	}
	return h, nil
}

func policiesFrom(cfg config.BatchingConfig) ([numCategories]batch.Policy, error) {
	var out [numCategories]batch.Policy
	for _, c := range Categories() {
		out[c] = DefaultPolicy(c)
	}
	for name, cc := range cfg.Categories {
		c, err := ParseCategory(name)
		if err != nil {
			return out, fmt.Errorf("batching config: %w", err)
		}
		p := out[c]
		if cc.Owning != nil {
			p.Owning = *cc.Owning
		}
		if cc.Order != "" {
			if p.Order, err = batch.ParseOrder(cc.Order); err != nil {
				return out, fmt.Errorf("batching config %s: %w", name, err)
			}
		}
		if cc.CollapseTransient != nil {
			p.CollapseTransient = *cc.CollapseTransient
		}
		out[c] = p
	}
	return out, nil
}

func newCategory(c Category, p batch.Policy, strict bool, obs Observer, dealloc Deallocator, log *zap.Logger) *category {
	g := batch.NewGroup(c.String(), log, strict)
	cat := &category{cat: c, group: g}

	var sink batch.Sink[ecs.ObjectID]
	if obs != nil {
		sink = batch.SinkFuncs[ecs.ObjectID]{
			OnCreated:   func(id ecs.ObjectID) { obs.Created(c, id) },
			OnDestroyed: func(id ecs.ObjectID) { obs.Destroyed(c, id) },
		}
	}
	var free func(ecs.ObjectID)
	if p.Owning {
		free = func(id ecs.ObjectID) { dealloc.Free(c, id) }
	}
	cat.lifecycle = batch.NewLifecycleBatch[ecs.ObjectID](g, p, sink, free)

	l := layouts[c]
	for _, kind := range l.states {
		cat.states[kind] = batch.NewStateBatch[ecs.ObjectID, int32](g, batch.StateFunc[ecs.ObjectID, int32](
			func(id ecs.ObjectID, data int32) {
				if obs != nil {
					obs.StateChanged(c, kind, id, data)
				}
			}))
	}
	if l.moved {
		cat.moved = batch.NewMoveBatch[ecs.ObjectID](g, batch.MoveFunc[ecs.ObjectID](func(id ecs.ObjectID) {
			if obs != nil {
				obs.Moved(c, id)
			}
		}))
	}
	return cat
}

// mustCategory fails fast on an unregistered category.
func (h *Handler) mustCategory(c Category) *category {
	if !c.Valid() || h.cats[c] == nil {
		panic(fmt.Sprintf("eventbatch: no batches registered for %s", c))
	}
	return h.cats[c]
}

func (cat *category) movedBatch() *batch.MoveBatch[ecs.ObjectID] {
	if cat.moved == nil {
		panic(fmt.Sprintf("eventbatch: category %s has no moved batch", cat.cat))
	}
	return cat.moved
}

func (cat *category) stateBatch(kind StateKind) *batch.StateBatch[ecs.ObjectID, int32] {
	if kind >= numStateKinds || cat.states[kind] == nil {
		panic(fmt.Sprintf("eventbatch: category %s has no %s batch", cat.cat, kind))
	}
	return cat.states[kind]
}

// Policy returns the lifecycle policy of c.
func (h *Handler) Policy(c Category) batch.Policy {
	return h.mustCategory(c).lifecycle.Policy()
}

// Owns reports whether the batch frees objects of category c.
func (h *Handler) Owns(c Category) bool {
	return h.Policy(c).Owning
}

// Producer returns the simulation-side handle.
func (h *Handler) Producer() Producer { return Producer{h: h} }

// Consumer returns the render-side handle.
func (h *Handler) Consumer() Consumer { return Consumer{h: h} }

// Flush runs delay, execute and destroy for one category synchronously.
func (h *Handler) Flush(c Category) {
	h.mustCategory(c).group.Flush()
}

// Drain flushes every category. Call at shutdown once the producer and
// consumer loops have stopped, before releasing object storage. It returns
// an error if anything is left behind.
func (h *Handler) Drain() error {
	var errs []error
	for _, c := range Categories() {
		g := h.mustCategory(c).group
		g.Flush()
		if !g.Empty() {
			errs = append(errs, fmt.Errorf("category %s not empty after drain", c))
		}
	}
	h.log.Debug("event batches drained")
	return errors.Join(errs...)
}

// CategoryStats is a consumer-safe view of one category.
type CategoryStats struct {
	Category Category
	Staged   int
	Garbage  int
}

// Stats reports staged and garbage counts per category.
func (h *Handler) Stats() []CategoryStats {
	out := make([]CategoryStats, 0, numCategories)
	for _, c := range Categories() {
		b := h.mustCategory(c).group.Backlog()
		out = append(out, CategoryStats{Category: c, Staged: b.Staged, Garbage: b.Garbage})
	}
	return out
}
