// Package world holds the simulation-side object state the demo driver
// mutates every tick. Only the simulation goroutine touches it.
package world

import (
	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
)

type Position struct{ X, Y float64 }

type Velocity struct{ DX, DY float64 }

// Lifetime counts down once per tick; the object expires at zero.
type Lifetime struct{ Remaining int }

// Cloak marks units that toggle their cloak state.
type Cloak struct{ On bool }

// State owns the ECS world and the component stores of every object.
type State struct {
	ECS        *ecs.World
	Kinds      *ecs.Store[eventbatch.Category]
	Positions  *ecs.Store[Position]
	Velocities *ecs.Store[Velocity]
	Lifetimes  *ecs.Store[Lifetime]
	Cloaks     *ecs.Store[Cloak]
}

func NewState() *State {
	s := &State{
		ECS:        ecs.NewWorld(),
		Kinds:      ecs.NewStore[eventbatch.Category](),
		Positions:  ecs.NewStore[Position](),
		Velocities: ecs.NewStore[Velocity](),
		Lifetimes:  ecs.NewStore[Lifetime](),
		Cloaks:     ecs.NewStore[Cloak](),
	}
	s.ECS.Register(s.Kinds)
	s.ECS.Register(s.Positions)
	s.ECS.Register(s.Velocities)
	s.ECS.Register(s.Lifetimes)
	s.ECS.Register(s.Cloaks)
	return s
}

// SpawnOptions describes a new object. Zero values omit the component.
type SpawnOptions struct {
	Pos   Position
	Vel   Velocity
	TTL   int
	Cloak bool
}

// Spawn allocates an object of category c and attaches its components.
func (s *State) Spawn(c eventbatch.Category, opt SpawnOptions) ecs.ObjectID {
	id := s.ECS.Spawn()
	kind := c
	s.Kinds.Set(id, &kind)
	pos := opt.Pos
	s.Positions.Set(id, &pos)
	if opt.Vel != (Velocity{}) {
		vel := opt.Vel
		s.Velocities.Set(id, &vel)
	}
	if opt.TTL > 0 {
		s.Lifetimes.Set(id, &Lifetime{Remaining: opt.TTL})
	}
	if opt.Cloak {
		s.Cloaks.Set(id, &Cloak{})
	}
	return id
}

// Kind returns the category of id.
func (s *State) Kind(id ecs.ObjectID) (eventbatch.Category, bool) {
	k, ok := s.Kinds.Get(id)
	if !ok {
		return 0, false
	}
	return *k, true
}

// Count returns how many objects of c have components attached.
func (s *State) Count(c eventbatch.Category) int {
	n := 0
	s.Kinds.Each(func(_ ecs.ObjectID, k *eventbatch.Category) {
		if *k == c {
			n++
		}
	})
	return n
}

// Objects returns every object that still has components attached.
func (s *State) Objects() []ecs.ObjectID {
	out := make([]ecs.ObjectID, 0, s.Kinds.Len())
	s.Kinds.Each(func(id ecs.ObjectID, _ *eventbatch.Category) {
		out = append(out, id)
	})
	return out
}
