package ecs

// Join visits objects that have both component A and B, iterating the
// smaller store.
func Join[A, B any](sa *Store[A], sb *Store[B], fn func(ObjectID, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for id, a := range sa.data {
			if b, ok := sb.data[id]; ok {
				fn(id, a, b)
			}
		}
		return
	}
	for id, b := range sb.data {
		if a, ok := sa.data[id]; ok {
			fn(id, a, b)
		}
	}
}
