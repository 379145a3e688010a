package system

import (
	"time"

	coresys "github.com/l1jgo/eventbatch/internal/core/system"
)

// PublishSystem stages this tick's event batches for the renderer. It runs
// last so every change made during the tick is in the snapshot.
// Phase 4 (Publish).
type PublishSystem struct {
	pub Publisher
}

func NewPublishSystem(pub Publisher) *PublishSystem {
	return &PublishSystem{pub: pub}
}

func (s *PublishSystem) Phase() coresys.Phase { return coresys.PhasePublish }

func (s *PublishSystem) Update(_ time.Duration) {
	s.pub.OnSimulationTick()
}
