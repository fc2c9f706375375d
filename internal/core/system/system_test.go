package system

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/internal/core/events/bus"
	"github.com/zeusync/spacewar/internal/core/models"
)

type counter struct {
	models.Base
	tag     models.Tag
	updates int
}

func (c *counter) Tag() models.Tag { return c.tag }

type recorder struct {
	tag   models.Tag
	name  string
	calls *[]string
	fail  error
	panic bool
}

func (r *recorder) Tag() models.Tag { return r.tag }
func (r *recorder) Name() string    { return r.name }

func (r *recorder) Update(float64) error {
	*r.calls = append(*r.calls, r.name)
	if r.panic {
		panic("boom")
	}
	return r.fail
}

func newCounterSystem(w *World, tag models.Tag, update func(c *counter, dt float64) error) *ComponentSystem[*counter] {
	return NewComponentSystem[*counter](w, tag, tag.String(), Hooks[*counter]{UpdateOne: update})
}

func TestDispatcher_TicksInRegistrationOrder(t *testing.T) {
	w := NewWorld()
	var calls []string
	require.NoError(t, w.Register(&recorder{tag: models.TagEngine, name: "engine", calls: &calls}))
	require.NoError(t, w.Register(&recorder{tag: models.TagPosition, name: "position", calls: &calls}))
	require.NoError(t, w.Register(&recorder{tag: models.TagCombat, name: "combat", calls: &calls}))

	require.NoError(t, w.Step(time.Second/30))
	assert.Equal(t, []string{"engine", "position", "combat"}, calls)

	err := w.Register(&recorder{tag: models.TagEngine, name: "again", calls: &calls})
	assert.ErrorIs(t, err, ErrDuplicateSystem)
}

func TestDispatcher_UnregisterRemovesTickSubscription(t *testing.T) {
	w := NewWorld()
	var calls []string
	require.NoError(t, w.Register(&recorder{tag: models.TagEngine, name: "engine", calls: &calls}))
	require.NoError(t, w.Register(&recorder{tag: models.TagCombat, name: "combat", calls: &calls}))

	require.NoError(t, w.Unregister(models.TagEngine))
	require.NoError(t, w.Step(time.Millisecond))
	assert.Equal(t, []string{"combat"}, calls)

	assert.ErrorIs(t, w.Unregister(models.TagEngine), ErrSystemNotFound)
}

func TestDispatcher_FailingSystemDoesNotStopTick(t *testing.T) {
	w := NewWorld()
	var calls []string
	failure := errors.New("bad state")
	require.NoError(t, w.Register(&recorder{tag: models.TagEngine, name: "engine", calls: &calls, panic: true}))
	require.NoError(t, w.Register(&recorder{tag: models.TagWeapon, name: "weapon", calls: &calls, fail: failure}))
	require.NoError(t, w.Register(&recorder{tag: models.TagCombat, name: "combat", calls: &calls}))

	err := w.Step(time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"engine", "weapon", "combat"}, calls)

	m, ok := w.Dispatcher().Metrics(models.TagEngine)
	require.True(t, ok)
	assert.Equal(t, uint64(1), m.PanicCount)
	assert.Equal(t, uint64(1), m.ErrorCount)
}

func TestDispatcher_PassiveSystemNotTicked(t *testing.T) {
	w := NewWorld()
	team := NewComponentSystem[*counter](w, models.TagTeam, "team", Hooks[*counter]{})
	require.NoError(t, w.Register(team))
	assert.True(t, team.Passive())

	_, err := w.Spawn(false, &counter{tag: models.TagTeam})
	require.NoError(t, err)
	require.NoError(t, w.Step(time.Millisecond))

	m, ok := w.Dispatcher().Metrics(models.TagTeam)
	require.True(t, ok)
	assert.Zero(t, m.ExecutionCount)
}

func TestComponentSystem_AttachDetachErrors(t *testing.T) {
	w := NewWorld()
	s := newCounterSystem(w, models.TagLifetime, nil)
	require.NoError(t, w.Register(s))

	e, err := w.Spawn(false, &counter{tag: models.TagLifetime})
	require.NoError(t, err)
	c, _ := e.Get(models.TagLifetime)

	assert.ErrorIs(t, s.Attach(c), ErrAlreadyAttached)
	assert.ErrorIs(t, s.Detach(999), ErrNotAttached)
	assert.ErrorIs(t, s.Attach(&counter{tag: models.TagLifetime}), ErrDetachedComponent)

	require.NoError(t, s.Detach(e.ID()))
	assert.Zero(t, s.Len())
}

func TestComponentSystem_RemovalDuringUpdate(t *testing.T) {
	w := NewWorld()
	var victim models.EntityID
	var killer models.EntityID

	s := newCounterSystem(w, models.TagLifetime, func(c *counter, _ float64) error {
		c.updates++
		if c.Entity().ID() == killer {
			return w.Destroy(victim)
		}
		return nil
	})
	require.NoError(t, w.Register(s))

	// Either order of iteration must be safe; run both.
	for round := 0; round < 2; round++ {
		a, err := w.Spawn(false, &counter{tag: models.TagLifetime})
		require.NoError(t, err)
		b, err := w.Spawn(false, &counter{tag: models.TagLifetime})
		require.NoError(t, err)

		killer, victim = a.ID(), b.ID()
		if round == 1 {
			killer, victim = b.ID(), a.ID()
		}
		victimComp, _ := models.ComponentOf[*counter](mustEntity(t, w, victim), models.TagLifetime)

		require.NoError(t, w.Step(time.Millisecond))

		_, alive := w.Entity(victim)
		assert.False(t, alive)
		assert.LessOrEqual(t, victimComp.updates, 1)
		require.NoError(t, w.Destroy(killer))
	}
	assert.Zero(t, s.Len())
}

func TestComponentSystem_AdditionDuringUpdateDeferred(t *testing.T) {
	w := NewWorld()
	var spawned *models.Entity

	s := newCounterSystem(w, models.TagLifetime, func(c *counter, _ float64) error {
		c.updates++
		if spawned == nil {
			var err error
			spawned, err = w.Spawn(false, &counter{tag: models.TagLifetime})
			return err
		}
		return nil
	})
	require.NoError(t, w.Register(s))

	_, err := w.Spawn(false, &counter{tag: models.TagLifetime})
	require.NoError(t, err)

	require.NoError(t, w.Step(time.Millisecond))
	require.NotNil(t, spawned)
	child, _ := models.ComponentOf[*counter](spawned, models.TagLifetime)
	assert.Zero(t, child.updates)

	require.NoError(t, w.Step(time.Millisecond))
	assert.Equal(t, 1, child.updates)
}

func TestComponentSystem_FailingComponentDoesNotStopOthers(t *testing.T) {
	w := NewWorld()
	var bad models.EntityID
	s := newCounterSystem(w, models.TagLifetime, func(c *counter, _ float64) error {
		if c.Entity().ID() == bad {
			panic("corrupt")
		}
		c.updates++
		return nil
	})
	require.NoError(t, w.Register(s))

	a, _ := w.Spawn(false, &counter{tag: models.TagLifetime})
	b, _ := w.Spawn(false, &counter{tag: models.TagLifetime})
	bad = a.ID()

	assert.Error(t, w.Step(time.Millisecond))
	good, _ := models.ComponentOf[*counter](b, models.TagLifetime)
	assert.Equal(t, 1, good.updates)
}

func TestWorld_IDsNeverReused(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.Register(newCounterSystem(w, models.TagLifetime, nil)))

	first, err := w.Spawn(false, &counter{tag: models.TagLifetime})
	require.NoError(t, err)
	require.NoError(t, w.Destroy(first.ID()))

	second, err := w.Spawn(false, &counter{tag: models.TagLifetime})
	require.NoError(t, err)
	assert.Greater(t, second.ID(), first.ID())

	assert.ErrorIs(t, w.Destroy(first.ID()), models.ErrEntityNotFound)
	assert.True(t, first.Destroyed())
}

func TestWorld_SpawnRollsBackOnFailure(t *testing.T) {
	w := NewWorld()
	lifetime := newCounterSystem(w, models.TagLifetime, nil)
	require.NoError(t, w.Register(lifetime))

	_, err := w.Spawn(false, &counter{tag: models.TagLifetime}, &counter{tag: models.TagWeapon})
	assert.ErrorIs(t, err, ErrSystemNotFound)
	assert.Zero(t, lifetime.Len())
	assert.Zero(t, w.Len())
}

func TestWorld_StrictPanicsOnLogicError(t *testing.T) {
	w := NewWorld(WithStrict(true))
	require.NoError(t, w.Register(newCounterSystem(w, models.TagLifetime, nil)))
	e, err := w.Spawn(false, &counter{tag: models.TagLifetime})
	require.NoError(t, err)

	assert.Panics(t, func() { _ = w.DetachComponent(e.ID(), models.TagWeapon) })

	w.AddAudit(func() error { return errors.New("entity in two cells") })
	assert.Panics(t, func() { _ = w.Step(time.Millisecond) })
}

func TestWorld_DestroyPublishesEvent(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.Register(newCounterSystem(w, models.TagLifetime, nil)))

	var destroyed []models.EntityID
	_, err := w.Bus().Subscribe(EventEntityDestroyed, func(ev bus.Event) error {
		destroyed = append(destroyed, ev.Data().(models.EntityID))
		return nil
	})
	require.NoError(t, err)

	e, err := w.Spawn(false, &counter{tag: models.TagLifetime})
	require.NoError(t, err)
	require.NoError(t, w.Destroy(e.ID()))
	assert.ErrorIs(t, w.Destroy(e.ID()), models.ErrEntityNotFound)

	assert.Equal(t, []models.EntityID{e.ID()}, destroyed)
}

func mustEntity(t *testing.T, w *World, id models.EntityID) *models.Entity {
	t.Helper()
	e, ok := w.Entity(id)
	require.True(t, ok)
	return e
}
