package system

import (
	"time"

	"github.com/l1jgo/eventbatch/internal/core/ecs"
	coresys "github.com/l1jgo/eventbatch/internal/core/system"
	"github.com/l1jgo/eventbatch/internal/world"
	"go.uber.org/zap"
)

// ExpireSystem counts lifetimes down and removes expired objects. Objects
// of owning categories are handed to the event batch, which frees them
// after the renderer has seen them go; the rest are queued for
// CleanupSystem. Phase 2 (PostUpdate).
type ExpireSystem struct {
	world   *world.State
	pub     Publisher
	owns    OwnsFunc
	log     *zap.Logger
	expired []ecs.ObjectID
}

func NewExpireSystem(ws *world.State, pub Publisher, owns OwnsFunc, log *zap.Logger) *ExpireSystem {
	return &ExpireSystem{world: ws, pub: pub, owns: owns, log: log, expired: make([]ecs.ObjectID, 0, 64)}
}

func (s *ExpireSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ExpireSystem) Update(_ time.Duration) {
	s.world.Lifetimes.Each(func(id ecs.ObjectID, lt *world.Lifetime) {
		lt.Remaining--
		if lt.Remaining <= 0 {
			s.expired = append(s.expired, id)
		}
	})
	for _, id := range s.expired {
		Despawn(s.world, s.pub, s.owns, id)
	}
	if len(s.expired) > 0 {
		s.log.Debug("objects expired", zap.Int("count", len(s.expired)))
	}
	s.expired = s.expired[:0]
}

// Despawn removes id from the simulation and reports it destroyed. Owned
// identities stay allocated until the event batch frees them.
func Despawn(ws *world.State, pub Publisher, owns OwnsFunc, id ecs.ObjectID) {
	kind, ok := ws.Kind(id)
	if !ok {
		return
	}
	pub.Remove(kind, id)
	if owns(kind) {
		ws.ECS.Detach(id)
		return
	}
	ws.ECS.MarkForDestruction(id)
}

// DespawnAll removes every object still in the simulation. Used at the end
// of a session before the batches are drained.
func DespawnAll(ws *world.State, pub Publisher, owns OwnsFunc) int {
	ids := ws.Objects()
	for _, id := range ids {
		Despawn(ws, pub, owns, id)
	}
	return len(ids)
}
