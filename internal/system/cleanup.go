package system

import (
	"time"

	coresys "github.com/l1jgo/eventbatch/internal/core/system"
	"github.com/l1jgo/eventbatch/internal/world"
)

// CleanupSystem frees the identities of non-owned objects queued for
// destruction this tick. Phase 3 (Cleanup).
type CleanupSystem struct {
	world *world.State
	freed int
}

func NewCleanupSystem(ws *world.State) *CleanupSystem {
	return &CleanupSystem{world: ws}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.freed += s.world.ECS.FlushDestroyQueue()
}

// Freed returns how many identities this system has released.
func (s *CleanupSystem) Freed() int { return s.freed }
