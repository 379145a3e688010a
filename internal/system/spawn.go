package system

import (
	"time"

	coresys "github.com/l1jgo/eventbatch/internal/core/system"
	"github.com/l1jgo/eventbatch/internal/data"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"github.com/l1jgo/eventbatch/internal/world"
)

// SpawnSystem creates the objects a scenario schedules for each tick and
// announces them. Phase 0 (Spawn).
type SpawnSystem struct {
	world    *world.State
	scenario *data.Scenario
	pub      Publisher
	tick     int
	spawned  int
}

func NewSpawnSystem(ws *world.State, sc *data.Scenario, pub Publisher) *SpawnSystem {
	return &SpawnSystem{world: ws, scenario: sc, pub: pub}
}

func (s *SpawnSystem) Phase() coresys.Phase { return coresys.PhaseSpawn }

func (s *SpawnSystem) Update(_ time.Duration) {
	s.tick++
	for _, sp := range s.scenario.At(s.tick) {
		for i := 0; i < sp.Count; i++ {
			id := s.world.Spawn(sp.Category, world.SpawnOptions{
				Pos:   world.Position{X: float64(i)},
				Vel:   world.Velocity{DX: sp.VX, DY: sp.VY},
				TTL:   sp.TTL,
				Cloak: sp.Cloak && sp.Category == eventbatch.Unit,
			})
			s.pub.Add(sp.Category, id)
			if sp.Category == eventbatch.Unit {
				s.pub.Update(eventbatch.Unit, eventbatch.LOS, id, LOSVisible)
			}
			s.spawned++
		}
	}
}

// Spawned returns the total number of objects created so far.
func (s *SpawnSystem) Spawned() int { return s.spawned }
