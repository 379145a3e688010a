package render

import (
	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
)

// Fanout forwards every notification to each observer in order.
type Fanout []eventbatch.Observer

func (f Fanout) Created(c eventbatch.Category, id ecs.ObjectID) {
	for _, o := range f {
		o.Created(c, id)
	}
}

func (f Fanout) Destroyed(c eventbatch.Category, id ecs.ObjectID) {
	for _, o := range f {
		o.Destroyed(c, id)
	}
}

func (f Fanout) Moved(c eventbatch.Category, id ecs.ObjectID) {
	for _, o := range f {
		o.Moved(c, id)
	}
}

func (f Fanout) StateChanged(c eventbatch.Category, kind eventbatch.StateKind, id ecs.ObjectID, data int32) {
	for _, o := range f {
		o.StateChanged(c, kind, id, data)
	}
}
