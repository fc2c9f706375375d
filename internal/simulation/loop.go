package simulation

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/system"
)

var (
	ErrAlreadyRunning = errors.New("simulation loop already running")
	ErrNotRunning     = errors.New("simulation loop not running")
)

// Config controls the pacing of the loop.
type Config struct {
	// Period is the target time between tick starts.
	Period time.Duration `yaml:"period"`
	// MaxStep caps the delta handed to the world after a stall. Zero, the
	// default, passes the measured delta through.
	MaxStep time.Duration `yaml:"max_step"`
}

func DefaultConfig() Config {
	return Config{
		Period: 50 * time.Millisecond,
	}
}

// AfterTick runs on the loop goroutine after every tick, with the world lock held.
type AfterTick func(dt time.Duration)

// Metrics describe the loop since it was created.
type Metrics struct {
	Ticks     uint64
	Overruns  uint64
	Failures  uint64
	LastTick  time.Duration
	LastDelta time.Duration
}

// Loop steps a world at a fixed period with the measured elapsed time as delta.
type Loop struct {
	world  *system.World
	cfg    Config
	logger log.Log

	hooksMu sync.RWMutex
	hooks   []AfterTick

	lifecycle sync.Mutex
	running   atomic.Bool
	stopChan  chan struct{}
	done      chan struct{}

	ticks     atomic.Uint64
	overruns  atomic.Uint64
	failures  atomic.Uint64
	lastTick  atomic.Int64
	lastDelta atomic.Int64
}

func New(world *system.World, cfg Config, logger log.Log) *Loop {
	if cfg.Period <= 0 {
		cfg.Period = DefaultConfig().Period
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Loop{
		world:  world,
		cfg:    cfg,
		logger: logger.With(log.String("component", "simulation")),
	}
}

// OnAfterTick adds a hook. Hooks run in registration order.
func (l *Loop) OnAfterTick(fn AfterTick) {
	l.hooksMu.Lock()
	l.hooks = append(l.hooks, fn)
	l.hooksMu.Unlock()
}

// Start launches the loop goroutine.
func (l *Loop) Start() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.running.Load() {
		return ErrAlreadyRunning
	}
	l.stopChan = make(chan struct{})
	l.done = make(chan struct{})
	l.running.Store(true)

	go l.run(l.stopChan, l.done)

	l.logger.Info("Simulation started", log.Duration("period", l.cfg.Period))
	return nil
}

// Stop signals the loop and waits for the tick in progress to finish. It must not
// be called from a hook or a system.
func (l *Loop) Stop() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if !l.running.Load() {
		return ErrNotRunning
	}
	close(l.stopChan)
	<-l.done
	l.running.Store(false)

	l.logger.Info("Simulation stopped", log.Uint64("ticks", l.ticks.Load()))
	return nil
}

func (l *Loop) Running() bool {
	return l.running.Load()
}

func (l *Loop) Metrics() Metrics {
	return Metrics{
		Ticks:     l.ticks.Load(),
		Overruns:  l.overruns.Load(),
		Failures:  l.failures.Load(),
		LastTick:  time.Duration(l.lastTick.Load()),
		LastDelta: time.Duration(l.lastDelta.Load()),
	}
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	last := time.Now().Add(-l.cfg.Period)
	for {
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()
		dt := start.Sub(last)
		last = start
		if l.cfg.MaxStep > 0 && dt > l.cfg.MaxStep {
			dt = l.cfg.MaxStep
		}

		l.Tick(dt)

		elapsed := time.Since(start)
		wait := l.cfg.Period - elapsed
		if wait < 0 {
			l.overruns.Add(1)
			l.logger.Debug("Tick overran period",
				log.Duration("elapsed", elapsed),
				log.Duration("period", l.cfg.Period))
			wait = 0
		}

		timer.Reset(wait)
		select {
		case <-stop:
			return
		case <-timer.C:
		}
	}
}

// Tick steps the world once by dt and runs the hooks, all under the world lock.
// The loop goroutine calls it; tests and tools may call it directly while the loop
// is stopped.
func (l *Loop) Tick(dt time.Duration) {
	start := time.Now()

	l.world.Lock()
	defer l.world.Unlock()

	if err := l.world.Step(dt); err != nil {
		l.failures.Add(1)
		l.logger.Warn("Tick finished with errors", log.Uint64("tick", l.world.Ticks()), log.Error(err))
	}

	l.hooksMu.RLock()
	hooks := l.hooks
	l.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(dt)
	}

	l.ticks.Add(1)
	l.lastTick.Store(int64(time.Since(start)))
	l.lastDelta.Store(int64(dt))
}
