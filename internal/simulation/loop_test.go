package simulation

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/system"
)

type ticker struct {
	calls atomic.Int64
	fail  bool
}

func (t *ticker) Tag() models.Tag { return models.TagLifetime }
func (t *ticker) Name() string    { return "ticker" }

func (t *ticker) Update(float64) error {
	t.calls.Add(1)
	if t.fail {
		return assert.AnError
	}
	return nil
}

func newLoop(t *testing.T, period time.Duration) (*Loop, *ticker) {
	t.Helper()
	world := system.NewWorld()
	tk := &ticker{}
	require.NoError(t, world.Register(tk))
	return New(world, Config{Period: period}, nil), tk
}

func TestLoop_StartStopLifecycle(t *testing.T) {
	loop, _ := newLoop(t, 5*time.Millisecond)

	assert.ErrorIs(t, loop.Stop(), ErrNotRunning)
	require.NoError(t, loop.Start())
	assert.True(t, loop.Running())
	assert.ErrorIs(t, loop.Start(), ErrAlreadyRunning)

	require.NoError(t, loop.Stop())
	assert.False(t, loop.Running())
	assert.ErrorIs(t, loop.Stop(), ErrNotRunning)

	require.NoError(t, loop.Start())
	require.NoError(t, loop.Stop())
}

func TestLoop_TicksUntilStopped(t *testing.T) {
	loop, tk := newLoop(t, 2*time.Millisecond)

	var hooked atomic.Int64
	loop.OnAfterTick(func(dt time.Duration) {
		hooked.Add(1)
		assert.Greater(t, dt, time.Duration(0))
	})

	require.NoError(t, loop.Start())
	require.Eventually(t, func() bool { return tk.calls.Load() >= 5 }, time.Second, time.Millisecond)
	require.NoError(t, loop.Stop())

	stopped := tk.calls.Load()
	assert.Equal(t, stopped, hooked.Load())
	assert.Equal(t, uint64(stopped), loop.Metrics().Ticks)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, tk.calls.Load())
}

func TestLoop_DeltaCappedAfterStall(t *testing.T) {
	world := system.NewWorld()
	loop := New(world, Config{Period: time.Millisecond, MaxStep: 3 * time.Millisecond}, nil)

	stalled := false
	loop.OnAfterTick(func(dt time.Duration) {
		assert.LessOrEqual(t, dt, 3*time.Millisecond)
		if !stalled {
			stalled = true
			time.Sleep(10 * time.Millisecond)
		}
	})

	require.NoError(t, loop.Start())
	require.Eventually(t, func() bool { return loop.Metrics().Ticks >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, loop.Stop())
	assert.GreaterOrEqual(t, loop.Metrics().Overruns, uint64(1))
}

func TestLoop_DeltaPassedThroughByDefault(t *testing.T) {
	assert.Zero(t, DefaultConfig().MaxStep)

	world := system.NewWorld()
	loop := New(world, Config{Period: time.Millisecond}, nil)

	var (
		ticks   int
		longest time.Duration
	)
	loop.OnAfterTick(func(dt time.Duration) {
		ticks++
		longest = max(longest, dt)
		if ticks == 1 {
			time.Sleep(20 * time.Millisecond)
		}
	})

	require.NoError(t, loop.Start())
	require.Eventually(t, func() bool { return loop.Metrics().Ticks >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, loop.Stop())
	assert.GreaterOrEqual(t, longest, 20*time.Millisecond)
}

func TestLoop_TickCountsFailures(t *testing.T) {
	loop, tk := newLoop(t, time.Second)
	tk.fail = true

	loop.Tick(10 * time.Millisecond)
	loop.Tick(10 * time.Millisecond)

	m := loop.Metrics()
	assert.Equal(t, uint64(2), m.Ticks)
	assert.Equal(t, uint64(2), m.Failures)
	assert.Equal(t, 10*time.Millisecond, m.LastDelta)
	assert.Equal(t, 20*time.Millisecond, loop.world.Now())
}
