package eventbatch

import "github.com/l1jgo/eventbatch/internal/core/ecs"

// Producer is the simulation goroutine's handle. Its methods take no lock
// except OnSimulationTick and OnSimulationObjectRemoved, and must only be
// called from the one simulation goroutine.
type Producer struct {
	h *Handler
}

// Add records id as created.
func (p Producer) Add(c Category, id ecs.ObjectID) {
	p.h.mustCategory(c).lifecycle.Add(id)
}

// Remove records id as destroyed. For owning categories the batch now owns
// id and will free it after the consumer has seen the notification.
func (p Producer) Remove(c Category, id ecs.ObjectID) {
	p.h.mustCategory(c).lifecycle.Remove(id)
}

// Move records that id changed position. Only categories with a moved
// batch accept it.
func (p Producer) Move(c Category, id ecs.ObjectID) {
	p.h.mustCategory(c).movedBatch().Add(id)
}

// Update records the latest kind state of id. The last update before the
// next tick wins.
func (p Producer) Update(c Category, kind StateKind, id ecs.ObjectID, data int32) {
	p.h.mustCategory(c).stateBatch(kind).Update(id, data)
}

// OnSimulationTick stages every batch. Each category lock is taken once.
func (p Producer) OnSimulationTick() {
	for _, cat := range p.h.cats {
		cat.group.Delay()
	}
}

// OnSimulationObjectRemoved removes id and immediately delivers and
// releases everything pending for its category, outside the normal tick
// cadence.
func (p Producer) OnSimulationObjectRemoved(c Category, id ecs.ObjectID) {
	cat := p.h.mustCategory(c)
	cat.lifecycle.Remove(id)
	cat.group.Flush()
}

// Pending reports unstaged entries of c.
func (p Producer) Pending(c Category) int {
	return p.h.mustCategory(c).group.Pending()
}

// Consumer is the render goroutine's handle.
type Consumer struct {
	h *Handler
}

// OnRenderFrame executes every category under its own lock: dispatch all
// staged notifications, then free what owning categories retired.
func (c Consumer) OnRenderFrame() {
	for _, cat := range c.h.cats {
		cat.group.Execute()
	}
}
