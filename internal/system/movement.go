package system

import (
	"time"

	"github.com/l1jgo/eventbatch/internal/core/ecs"
	coresys "github.com/l1jgo/eventbatch/internal/core/system"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"github.com/l1jgo/eventbatch/internal/world"
)

// MovementSystem integrates velocities once per tick. Moving features are
// reported to the moved batch; the renderer re-reads their position.
// Phase 1 (Update).
type MovementSystem struct {
	world *world.State
	pub   Publisher
}

func NewMovementSystem(ws *world.State, pub Publisher) *MovementSystem {
	return &MovementSystem{world: ws, pub: pub}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Update(_ time.Duration) {
	ecs.Join(s.world.Positions, s.world.Velocities, func(id ecs.ObjectID, p *world.Position, v *world.Velocity) {
		p.X += v.DX
		p.Y += v.DY
		if kind, ok := s.world.Kind(id); ok && kind == eventbatch.Feature {
			s.pub.Move(eventbatch.Feature, id)
		}
	})
}
