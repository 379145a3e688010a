package system

import (
	"time"

	"github.com/l1jgo/eventbatch/internal/core/ecs"
	coresys "github.com/l1jgo/eventbatch/internal/core/system"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"github.com/l1jgo/eventbatch/internal/world"
)

// CloakSystem flips the cloak of every cloaking unit each interval ticks.
// Phase 1 (Update).
type CloakSystem struct {
	world    *world.State
	pub      Publisher
	interval int
	tick     int
}

// NewCloakSystem returns a system that toggles every interval ticks; an
// interval of zero disables it.
func NewCloakSystem(ws *world.State, pub Publisher, interval int) *CloakSystem {
	return &CloakSystem{world: ws, pub: pub, interval: interval}
}

func (s *CloakSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *CloakSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tick++
	if s.tick%s.interval != 0 {
		return
	}
	s.world.Cloaks.Each(func(id ecs.ObjectID, c *world.Cloak) {
		c.On = !c.On
		var data int32
		if c.On {
			data = 1
		}
		s.pub.Update(eventbatch.Unit, eventbatch.Cloak, id, data)
	})
}
