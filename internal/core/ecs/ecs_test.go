package ecs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_AllocFreeRecycles(t *testing.T) {
	p := NewPool()
	a := p.Alloc()
	require.False(t, a.IsZero())
	assert.True(t, p.Alive(a))
	assert.Equal(t, 1, p.Live())

	require.True(t, p.Free(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Free(a), "double free must be reported")

	b := p.Alloc()
	assert.Equal(t, a.Index(), b.Index())
	assert.Equal(t, a.Generation()+1, b.Generation())
	assert.False(t, p.Alive(a))
	assert.True(t, p.Alive(b))
}

func TestPool_UnknownID(t *testing.T) {
	p := NewPool()
	assert.False(t, p.Alive(NewObjectID(7, 1)))
	assert.False(t, p.Free(NewObjectID(7, 1)))
}

func TestPool_ConcurrentAllocFree(t *testing.T) {
	p := NewPool()
	ids := make(chan ObjectID, 1024)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			ids <- p.Alloc()
		}
		close(ids)
	}()
	go func() {
		defer wg.Done()
		for id := range ids {
			p.Free(id)
		}
	}()
	wg.Wait()
	assert.Zero(t, p.Live())
}

type pos struct{ X, Y float64 }
type vel struct{ DX, DY float64 }

func TestWorld_DetachAndFlush(t *testing.T) {
	w := NewWorld()
	positions := NewStore[pos]()
	velocities := NewStore[vel]()
	w.Register(positions)
	w.Register(velocities)

	a, b := w.Spawn(), w.Spawn()
	positions.Set(a, &pos{})
	positions.Set(b, &pos{})
	velocities.Set(b, &vel{DX: 1})

	w.Detach(a)
	assert.False(t, positions.Has(a))
	assert.True(t, w.Alive(a), "detach keeps the identity")

	w.MarkForDestruction(b)
	assert.Equal(t, 1, w.FlushDestroyQueue())
	assert.False(t, w.Alive(b))
	assert.Zero(t, positions.Len())
	assert.Zero(t, velocities.Len())
}

func TestJoin(t *testing.T) {
	positions := NewStore[pos]()
	velocities := NewStore[vel]()
	for i := uint32(1); i <= 4; i++ {
		positions.Set(NewObjectID(i, 1), &pos{})
	}
	velocities.Set(NewObjectID(2, 1), &vel{DX: 2})
	velocities.Set(NewObjectID(9, 1), &vel{DX: 9})

	var seen []ObjectID
	Join(positions, velocities, func(id ObjectID, p *pos, v *vel) {
		p.X += v.DX
		seen = append(seen, id)
	})
	assert.Equal(t, []ObjectID{NewObjectID(2, 1)}, seen)
	got, _ := positions.Get(NewObjectID(2, 1))
	assert.Equal(t, 2.0, got.X)
}
