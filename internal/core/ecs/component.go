package ecs

// Removable is implemented by all component stores so the World can detach
// an object from every store at once.
type Removable interface {
	Remove(id ObjectID)
}

// Store is a generic typed map store for per-object components. Stores are
// simulation-side data; the render goroutine never reads them.
type Store[T any] struct {
	data map[ObjectID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[ObjectID]*T, 256),
	}
}

func (s *Store[T]) Set(id ObjectID, c *T) {
	s.data[id] = c
}

func (s *Store[T]) Get(id ObjectID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id ObjectID) {
	delete(s.data, id)
}

func (s *Store[T]) Has(id ObjectID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// Each visits every component. fn must not add to or remove from s.
func (s *Store[T]) Each(fn func(ObjectID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}
