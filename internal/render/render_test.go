package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/eventbatch/internal/config"
	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestScene_TracksLiveObjects(t *testing.T) {
	s := NewScene(zaptest.NewLogger(t))

	s.Created(eventbatch.Unit, 1)
	s.StateChanged(eventbatch.Unit, eventbatch.Cloak, 1, 1)
	s.StateChanged(eventbatch.Unit, eventbatch.LOS, 1, 6)
	s.Created(eventbatch.Feature, 2)
	s.Moved(eventbatch.Feature, 2)
	s.Moved(eventbatch.Feature, 2)

	e, ok := s.Lookup(eventbatch.Unit, 1)
	require.True(t, ok)
	assert.Equal(t, Entry{Cloak: 1, LOS: 6}, e)
	e, _ = s.Lookup(eventbatch.Feature, 2)
	assert.Equal(t, 2, e.Moves)

	s.Destroyed(eventbatch.Unit, 1)
	assert.Zero(t, s.Live(eventbatch.Unit))
	assert.Equal(t, 1, s.Live(eventbatch.Feature))
	assert.Zero(t, s.Stats().Anomalies)
}

func TestScene_Anomalies(t *testing.T) {
	s := NewScene(zaptest.NewLogger(t))

	s.Destroyed(eventbatch.Unit, 5) // pre-existing object, not an anomaly
	s.Created(eventbatch.Unit, 1)
	s.Created(eventbatch.Unit, 1)
	s.Moved(eventbatch.Feature, 9)
	s.StateChanged(eventbatch.Unit, eventbatch.Cloak, 9, 1)

	assert.Equal(t, SceneStats{Created: 2, Destroyed: 1, Moved: 1, States: 1, Anomalies: 3}, s.Stats())
}

func TestFanout_ForwardsInOrder(t *testing.T) {
	a, b := NewScene(nil), NewScene(nil)
	f := Fanout{a, b}

	f.Created(eventbatch.Feature, 3)
	f.Moved(eventbatch.Feature, 3)
	f.StateChanged(eventbatch.Feature, eventbatch.LOS, 3, 2)
	f.Destroyed(eventbatch.Feature, 3)

	for _, s := range []*Scene{a, b} {
		assert.Equal(t, SceneStats{Created: 1, Destroyed: 1, Moved: 1, States: 1}, s.Stats())
	}
}

type fakeWriter struct {
	mu      sync.Mutex
	fail    bool
	written []Record
	session uuid.UUID
}

func (w *fakeWriter) WriteRecords(_ context.Context, session uuid.UUID, recs []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("database unavailable")
	}
	w.session = session
	w.written = append(w.written, recs...)
	return nil
}

func TestJournal_FlushWritesInSequence(t *testing.T) {
	w := &fakeWriter{}
	session := uuid.New()
	j := NewJournal(session, w, 0, zaptest.NewLogger(t))

	j.Created(eventbatch.SyncedProjectile, 1)
	j.StateChanged(eventbatch.Unit, eventbatch.Cloak, 2, 1)
	j.Destroyed(eventbatch.SyncedProjectile, 1)
	require.Equal(t, 3, j.Buffered())

	require.NoError(t, j.Flush(context.Background()))
	assert.Zero(t, j.Buffered())
	require.Len(t, w.written, 3)
	assert.Equal(t, session, w.session)
	assert.Equal(t, []string{"created", "cloak", "destroyed"}, []string{w.written[0].Kind, w.written[1].Kind, w.written[2].Kind})
	assert.Equal(t, int64(3), w.written[2].Seq)
	assert.Equal(t, int32(1), w.written[1].Data)
}

func TestJournal_FailedFlushKeepsRecords(t *testing.T) {
	w := &fakeWriter{fail: true}
	j := NewJournal(uuid.New(), w, 0, zaptest.NewLogger(t))

	j.Created(eventbatch.Unit, 1)
	require.Error(t, j.Flush(context.Background()))
	j.Moved(eventbatch.Feature, 2)
	assert.Equal(t, 2, j.Buffered())

	w.fail = false
	require.NoError(t, j.Flush(context.Background()))
	require.Len(t, w.written, 2)
	assert.Equal(t, int64(1), w.written[0].Seq)
	assert.Equal(t, int64(2), w.written[1].Seq)
}

func TestJournal_LimitDropsOldest(t *testing.T) {
	w := &fakeWriter{fail: true}
	core, logs := observer.New(zapcore.WarnLevel)
	j := NewJournal(uuid.New(), w, 4, zap.New(core))

	for round := 0; round < 3; round++ {
		for i := 0; i < 3; i++ {
			j.Moved(eventbatch.Feature, ecs.ObjectID(round*3+i))
		}
		require.Error(t, j.Flush(context.Background()))
		assert.LessOrEqual(t, j.Buffered(), 4)
	}
	assert.Equal(t, uint64(5), j.Dropped())
	assert.Equal(t, 1, logs.FilterMessage("journal buffer full, dropping oldest records").Len())

	w.fail = false
	require.NoError(t, j.Flush(context.Background()))
	require.Len(t, w.written, 4)
	assert.Equal(t, int64(6), w.written[0].Seq, "the newest records survive")
	assert.Equal(t, int64(9), w.written[3].Seq)
}

func TestJournal_RunFlushesOnCancel(t *testing.T) {
	w := &fakeWriter{}
	j := NewJournal(uuid.New(), w, 0, zaptest.NewLogger(t))
	j.Created(eventbatch.Unit, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, j.Run(ctx, time.Hour))
	assert.Len(t, w.written, 1)
}

func TestLoop_RendersUntilCancelled(t *testing.T) {
	scene := NewScene(zaptest.NewLogger(t))
	pool := ecs.NewPool()
	h, err := eventbatch.New(config.BatchingConfig{}, scene, eventbatch.DeallocatorFunc(func(_ eventbatch.Category, id ecs.ObjectID) {
		pool.Free(id)
	}), zaptest.NewLogger(t))
	require.NoError(t, err)

	p := h.Producer()
	u := pool.Alloc()
	p.Add(eventbatch.Unit, u)
	proj := pool.Alloc()
	p.Add(eventbatch.SyncedProjectile, proj)
	p.OnSimulationTick()
	p.Remove(eventbatch.SyncedProjectile, proj)
	p.OnSimulationTick()

	loop := NewLoop(h.Consumer(), time.Millisecond, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return scene.Stats().Destroyed == 1
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.GreaterOrEqual(t, loop.Frames(), uint64(1))
	assert.Equal(t, 1, scene.Live(eventbatch.Unit))
	assert.Zero(t, scene.Live(eventbatch.SyncedProjectile))
	assert.False(t, pool.Alive(proj))
	assert.True(t, pool.Alive(u))
}
