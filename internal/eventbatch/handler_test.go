package eventbatch

import (
	"fmt"
	"sync"
	"testing"

	"github.com/l1jgo/eventbatch/internal/config"
	"github.com/l1jgo/eventbatch/internal/core/batch"
	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// journal records observer calls and frees as formatted strings.
type journal struct {
	mu    sync.Mutex
	lines []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lines = append(j.lines, fmt.Sprintf(format, args...))
}

func (j *journal) Created(c Category, id ecs.ObjectID)   { j.add("created %s %d", c, id) }
func (j *journal) Destroyed(c Category, id ecs.ObjectID) { j.add("destroyed %s %d", c, id) }
func (j *journal) Moved(c Category, id ecs.ObjectID)     { j.add("moved %s %d", c, id) }
func (j *journal) StateChanged(c Category, k StateKind, id ecs.ObjectID, data int32) {
	j.add("%s %s %d %d", k, c, id, data)
}
func (j *journal) Free(c Category, id ecs.ObjectID) { j.add("free %s %d", c, id) }

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.lines...)
}

func newHandler(t *testing.T, cfg config.BatchingConfig) (*Handler, *journal) {
	t.Helper()
	j := &journal{}
	h, err := New(cfg, j, j, zaptest.NewLogger(t))
	require.NoError(t, err)
	return h, j
}

func cycle(h *Handler) {
	h.Producer().OnSimulationTick()
	h.Consumer().OnRenderFrame()
}

func TestHandler_UnitCreated(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	p.Add(Unit, 1)
	cycle(h)

	assert.Equal(t, []string{"created unit 1"}, j.snapshot())
}

func TestHandler_ProjectileCreatedAndDestroyedInOneTick(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	p.Add(SyncedProjectile, 7)
	p.Remove(SyncedProjectile, 7)
	cycle(h)

	assert.Equal(t, []string{
		"created synced_projectile 7",
		"destroyed synced_projectile 7",
		"free synced_projectile 7",
	}, j.snapshot())
}

func TestHandler_UnsyncedRemoveWaitsForSlowRenderer(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()
	c := h.Consumer()

	p.Add(UnsyncedProjectile, 3)
	p.OnSimulationTick()
	p.Remove(UnsyncedProjectile, 3)
	p.OnSimulationTick()
	c.OnRenderFrame()

	assert.Equal(t, []string{"created unsynced_projectile 3"}, j.snapshot())

	p.OnSimulationTick()
	c.OnRenderFrame()

	assert.Equal(t, []string{
		"created unsynced_projectile 3",
		"destroyed unsynced_projectile 3",
		"free unsynced_projectile 3",
	}, j.snapshot())
	require.NoError(t, h.Drain())
}

func TestHandler_CloakLastWriteWins(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	p.Update(Unit, Cloak, 1, 1)
	p.Update(Unit, Cloak, 1, 0)
	cycle(h)

	assert.Equal(t, []string{"cloak unit 1 0"}, j.snapshot())
}

func TestHandler_UnsyncedProjectileRetiresFirst(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	p.Add(UnsyncedProjectile, 2)
	p.Remove(UnsyncedProjectile, 1)
	cycle(h)

	assert.Equal(t, []string{
		"destroyed unsynced_projectile 1",
		"created unsynced_projectile 2",
		"free unsynced_projectile 1",
	}, j.snapshot())
}

func TestHandler_NonOwningCategoriesNeverFree(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	for i := ecs.ObjectID(1); i <= 3; i++ {
		p.Add(Unit, i)
		p.Add(Feature, i)
		p.Move(Feature, i)
		cycle(h)
		p.Remove(Unit, i)
		p.Remove(Feature, i)
		cycle(h)
	}
	for _, line := range j.snapshot() {
		assert.NotContains(t, line, "free")
	}
	assert.Len(t, j.snapshot(), 15)
}

func TestHandler_EmptyCycles(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	for i := 0; i < 3; i++ {
		cycle(h)
	}
	assert.Empty(t, j.snapshot())
	for _, s := range h.Stats() {
		assert.Zero(t, s.Staged, s.Category.String())
		assert.Zero(t, s.Garbage, s.Category.String())
	}
}

func TestHandler_FrameOrderWithinCategory(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	p.Update(Unit, LOS, 3, 4)
	p.Update(Unit, Cloak, 3, 1)
	p.Add(Unit, 3)
	cycle(h)

	assert.Equal(t, []string{"created unit 3", "cloak unit 3 1", "los unit 3 4"}, j.snapshot())
}

func TestHandler_OnSimulationObjectRemoved(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	p.Add(SyncedProjectile, 5)
	p.Add(Unit, 9)
	p.OnSimulationObjectRemoved(SyncedProjectile, 5)

	assert.Equal(t, []string{
		"created synced_projectile 5",
		"destroyed synced_projectile 5",
		"free synced_projectile 5",
	}, j.snapshot())
	assert.Equal(t, 1, p.Pending(Unit), "other categories keep their cadence")
}

func TestHandler_DrainFlushesEverything(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	p.Add(SyncedProjectile, 1)
	p.OnSimulationTick() // staged, never rendered
	p.Remove(SyncedProjectile, 1)
	p.Update(Unit, Cloak, 2, 1)
	p.Remove(Unit, 2)

	require.NoError(t, h.Drain())
	assert.Equal(t, []string{
		"cloak unit 2 1",
		"destroyed unit 2",
		"created synced_projectile 1",
		"destroyed synced_projectile 1",
		"free synced_projectile 1",
	}, j.snapshot())
}

func TestHandler_ConfigOverridesPolicy(t *testing.T) {
	h, j := newHandler(t, config.BatchingConfig{
		Categories: map[string]config.CategoryConfig{
			"synced_projectile": {Owning: ptr(true), Order: "remove_first", CollapseTransient: ptr(true)},
		},
	})
	assert.Equal(t, batch.Policy{Owning: true, Order: batch.OrderRemoveFirst, CollapseTransient: true}, h.Policy(SyncedProjectile))
	assert.True(t, h.Owns(UnsyncedProjectile))
	assert.False(t, h.Owns(Unit))

	p := h.Producer()
	p.Add(SyncedProjectile, 4)
	p.Remove(SyncedProjectile, 4)
	cycle(h)
	assert.Equal(t, []string{"free synced_projectile 4"}, j.snapshot())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.BatchingConfig{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoDeallocator)

	_, err = New(config.BatchingConfig{Categories: map[string]config.CategoryConfig{"tree": {}}}, nil, DeallocatorFunc(func(Category, ecs.ObjectID) {}), nil)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = New(config.BatchingConfig{Categories: map[string]config.CategoryConfig{"unit": {Order: "later"}}}, nil, DeallocatorFunc(func(Category, ecs.ObjectID) {}), nil)
	assert.Error(t, err)

	h, err := New(config.BatchingConfig{Categories: map[string]config.CategoryConfig{
		"synced_projectile":   {Owning: ptr(false)},
		"unsynced_projectile": {Owning: ptr(false)},
	}}, nil, nil, nil)
	require.NoError(t, err, "no owning category needs no deallocator")
	assert.False(t, h.Owns(SyncedProjectile))
}

func TestHandler_PartialOverrideKeepsDefaults(t *testing.T) {
	h, _ := newHandler(t, config.BatchingConfig{
		Categories: map[string]config.CategoryConfig{
			"synced_projectile":   {Order: "remove_first"},
			"unsynced_projectile": {CollapseTransient: ptr(false)},
			"unit":                {},
		},
	})
	assert.Equal(t, batch.Policy{Owning: true, Order: batch.OrderRemoveFirst}, h.Policy(SyncedProjectile))
	assert.Equal(t, DefaultPolicy(UnsyncedProjectile).Order, h.Policy(UnsyncedProjectile).Order)
	assert.True(t, h.Owns(UnsyncedProjectile))
	assert.False(t, h.Policy(UnsyncedProjectile).CollapseTransient)
	assert.Equal(t, DefaultPolicy(Unit), h.Policy(Unit))

	_, err := New(config.BatchingConfig{Categories: map[string]config.CategoryConfig{
		"synced_projectile": {Order: "add_first"},
	}}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoDeallocator, "owning survives an order-only override")
}

func ptr[T any](v T) *T { return &v }

func TestHandler_MissingBatchPanics(t *testing.T) {
	h, _ := newHandler(t, config.BatchingConfig{})
	p := h.Producer()

	assert.Panics(t, func() { p.Move(Unit, 1) })
	assert.Panics(t, func() { p.Update(Feature, Cloak, 1, 1) })
	assert.Panics(t, func() { p.Add(Category(42), 1) })
}

func TestHandler_StrictDoubleRemovePanics(t *testing.T) {
	h, _ := newHandler(t, config.BatchingConfig{Strict: true})
	p := h.Producer()

	p.Remove(Feature, 1)
	assert.Panics(t, func() { p.Remove(Feature, 1) })
}

func TestHandler_ConcurrentTickAndFrame(t *testing.T) {
	pool := ecs.NewPool()
	var freed sync.Map
	h, err := New(config.BatchingConfig{}, nil, DeallocatorFunc(func(_ Category, id ecs.ObjectID) {
		_, dup := freed.LoadOrStore(id, true)
		assert.False(t, dup, "double free of %d", id)
		assert.True(t, pool.Free(id))
	}), zaptest.NewLogger(t))
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c := h.Consumer()
		for {
			select {
			case <-done:
				return
			default:
				c.OnRenderFrame()
			}
		}
	}()

	p := h.Producer()
	var live []ecs.ObjectID
	for tick := 0; tick < 300; tick++ {
		id := pool.Alloc()
		p.Add(SyncedProjectile, id)
		live = append(live, id)
		if len(live) > 5 {
			p.Remove(SyncedProjectile, live[0])
			live = live[1:]
		}
		p.OnSimulationTick()
	}
	for _, id := range live {
		p.Remove(SyncedProjectile, id)
	}
	close(done)
	wg.Wait()

	require.NoError(t, h.Drain())
	assert.Zero(t, pool.Live())
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCategory("tree")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
