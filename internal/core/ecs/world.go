package ecs

// World owns the identity pool, the registered component stores and a
// deferred destruction queue flushed once per tick.
type World struct {
	pool         *Pool
	stores       []Removable
	destroyQueue []ObjectID
}

func NewWorld() *World {
	return &World{
		pool:         NewPool(),
		stores:       make([]Removable, 0, 8),
		destroyQueue: make([]ObjectID, 0, 64),
	}
}

func (w *World) Pool() *Pool { return w.pool }

// Register adds a component store so Detach and FlushDestroyQueue clear it.
func (w *World) Register(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World) Spawn() ObjectID {
	return w.pool.Alloc()
}

func (w *World) Alive(id ObjectID) bool {
	return w.pool.Alive(id)
}

// Detach removes id from every component store without releasing its
// identity. Used when another owner frees the identity later.
func (w *World) Detach(id ObjectID) {
	for _, s := range w.stores {
		s.Remove(id)
	}
}

// MarkForDestruction queues id for end-of-tick cleanup.
func (w *World) MarkForDestruction(id ObjectID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue detaches and frees every queued object and returns how
// many identities were released.
func (w *World) FlushDestroyQueue() int {
	freed := 0
	for _, id := range w.destroyQueue {
		w.Detach(id)
		if w.pool.Free(id) {
			freed++
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
	return freed
}
