// Package render holds the consumer side of the event batches: the frame
// loop and the observers that react to batched notifications.
package render

import (
	"sync"

	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"go.uber.org/zap"
)

// Entry is the render-side record of one live object.
type Entry struct {
	Cloak int32
	LOS   int32
	Moves int
}

// SceneStats counts what a Scene has seen.
type SceneStats struct {
	Created   int
	Destroyed int
	Moved     int
	States    int
	Anomalies int
}

// Scene keeps render-side bookkeeping for every live object. It never
// touches simulation objects, only their IDs.
type Scene struct {
	mu    sync.Mutex
	live  map[eventbatch.Category]map[ecs.ObjectID]*Entry
	stats SceneStats
	log   *zap.Logger
}

func NewScene(log *zap.Logger) *Scene {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scene{
		live: make(map[eventbatch.Category]map[ecs.ObjectID]*Entry),
		log:  log,
	}
	for _, c := range eventbatch.Categories() {
		s.live[c] = make(map[ecs.ObjectID]*Entry)
	}
	return s
}

func (s *Scene) Created(c eventbatch.Category, id ecs.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Created++
	if _, dup := s.live[c][id]; dup {
		s.anomaly("created twice", c, id)
		return
	}
	s.live[c][id] = &Entry{}
}

func (s *Scene) Destroyed(c eventbatch.Category, id ecs.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Destroyed++
	if _, ok := s.live[c][id]; !ok {
		// Objects that existed before batching began arrive without Created.
		s.log.Debug("destroyed unknown object", zap.Stringer("category", c), zap.Uint64("object", uint64(id)))
		return
	}
	delete(s.live[c], id)
}

func (s *Scene) Moved(c eventbatch.Category, id ecs.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Moved++
	if e, ok := s.live[c][id]; ok {
		e.Moves++
		return
	}
	s.anomaly("moved unknown object", c, id)
}

func (s *Scene) StateChanged(c eventbatch.Category, kind eventbatch.StateKind, id ecs.ObjectID, data int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.States++
	e, ok := s.live[c][id]
	if !ok {
		s.anomaly("state change for unknown object", c, id)
		return
	}
	switch kind {
	case eventbatch.Cloak:
		e.Cloak = data
	case eventbatch.LOS:
		e.LOS = data
	}
}

func (s *Scene) anomaly(msg string, c eventbatch.Category, id ecs.ObjectID) {
	s.stats.Anomalies++
	s.log.Warn(msg, zap.Stringer("category", c), zap.Uint64("object", uint64(id)))
}

// Live returns the number of live objects of c.
func (s *Scene) Live(c eventbatch.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live[c])
}

// Lookup returns a copy of the entry for id.
func (s *Scene) Lookup(c eventbatch.Category, id ecs.ObjectID) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live[c][id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (s *Scene) Stats() SceneStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
