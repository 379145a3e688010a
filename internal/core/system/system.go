package system

import "time"

// Phase defines execution ordering within a single simulation tick.
type Phase int

const (
	PhaseSpawn      Phase = iota // 0: create scheduled objects
	PhaseUpdate                  // 1: movement, state changes
	PhasePostUpdate              // 2: lifetimes, expiry
	PhaseCleanup                 // 3: free queued non-owned objects
	PhasePublish                 // 4: stage event batches for the renderer
)

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
