package system

import (
	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
)

// Publisher is the producer side of the event batches as the simulation
// systems see it. eventbatch.Producer implements it.
type Publisher interface {
	Add(c eventbatch.Category, id ecs.ObjectID)
	Remove(c eventbatch.Category, id ecs.ObjectID)
	Move(c eventbatch.Category, id ecs.ObjectID)
	Update(c eventbatch.Category, kind eventbatch.StateKind, id ecs.ObjectID, data int32)
	OnSimulationTick()
}

// OwnsFunc reports whether the event batch frees objects of a category.
type OwnsFunc func(c eventbatch.Category) bool

// LOSVisible is the LOS mask announced for freshly spawned units.
const LOSVisible int32 = 1
