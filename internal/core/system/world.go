package system

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/spacewar/internal/core/events/bus"
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
)

const (
	EventEntitySpawned   = "entity.spawned"
	EventEntityDestroyed = "entity.destroyed"
)

// World is the simulation context handed to every system. It owns the entity
// table, the dispatcher, the change clock and simulation time.
//
// Locking: the world lock is the outer lock. The simulation loop holds it for a
// whole tick; I/O goroutines take it through Exec. Spawn, Destroy and the other
// mutating methods expect the caller to hold it.
type World struct {
	mu sync.Mutex

	entities   map[models.EntityID]*models.Entity
	nextID     atomic.Uint32
	clock      models.Clock
	dispatcher *Dispatcher

	now    time.Duration
	ticks  uint64
	audits []func() error

	strict bool
	logger log.Log
	bus    bus.EventBus
}

type Option func(*World)

func WithLogger(logger log.Log) Option {
	return func(w *World) { w.logger = logger }
}

func WithBus(b bus.EventBus) Option {
	return func(w *World) { w.bus = b }
}

// WithStrict makes logic errors (double attach, detach of unknown component,
// failed audits) panic instead of being logged.
func WithStrict(strict bool) Option {
	return func(w *World) { w.strict = strict }
}

func NewWorld(opts ...Option) *World {
	w := &World{
		entities: make(map[models.EntityID]*models.Entity),
		logger:   log.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.bus == nil {
		w.bus = bus.New()
	}
	w.logger = w.logger.With(log.String("component", "world"))
	w.dispatcher = NewDispatcher(w.logger)
	return w
}

func (w *World) Lock()   { w.mu.Lock() }
func (w *World) Unlock() { w.mu.Unlock() }

// Exec runs fn while holding the world lock.
func (w *World) Exec(fn func(w *World) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w)
}

func (w *World) Logger() log.Log      { return w.logger }
func (w *World) Bus() bus.EventBus    { return w.bus }
func (w *World) Clock() *models.Clock { return &w.clock }
func (w *World) Strict() bool         { return w.strict }

// Now is the simulation time accumulated from tick deltas.
func (w *World) Now() time.Duration { return w.now }
func (w *World) Ticks() uint64      { return w.ticks }

func (w *World) Register(s System) error {
	return w.dispatcher.Register(s)
}

func (w *World) Unregister(tag models.Tag) error {
	return w.dispatcher.Unregister(tag)
}

func (w *World) Dispatcher() *Dispatcher {
	return w.dispatcher
}

// AddAudit registers a structural check run after every step of a strict world.
func (w *World) AddAudit(check func() error) {
	w.audits = append(w.audits, check)
}

// AllocateID returns a fresh id. Ids start at 1 and are never reused.
func (w *World) AllocateID() models.EntityID {
	return models.EntityID(w.nextID.Add(1))
}

func (w *World) Entity(id models.EntityID) (*models.Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

func (w *World) Len() int {
	return len(w.entities)
}

// EntityIDs returns the live ids in ascending order.
func (w *World) EntityIDs() []models.EntityID {
	ids := make([]models.EntityID, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Spawn creates an entity and attaches the given components. Attach hooks see the
// entity already present in the table. On failure every attached component is
// detached again and the entity is discarded.
func (w *World) Spawn(serializable bool, components ...models.Component) (*models.Entity, error) {
	e := models.NewEntity(w.AllocateID(), serializable, &w.clock)
	w.entities[e.ID()] = e

	for i, c := range components {
		if err := w.attach(e, c); err != nil {
			for _, done := range components[:i] {
				w.detach(e, done.Tag())
			}
			delete(w.entities, e.ID())
			e.MarkDestroyed()
			return nil, fmt.Errorf("spawn %s: %w", e.ID(), err)
		}
	}

	w.publish(EventEntitySpawned, e.ID())
	return e, nil
}

// AttachComponent adds c to a live entity.
func (w *World) AttachComponent(id models.EntityID, c models.Component) error {
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("attach %s to %s: %w", c.Tag(), id, models.ErrEntityNotFound)
	}
	return w.attach(e, c)
}

// DetachComponent removes the component with tag from a live entity.
func (w *World) DetachComponent(id models.EntityID, tag models.Tag) error {
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("detach %s from %s: %w", tag, id, models.ErrEntityNotFound)
	}
	if !e.Has(tag) {
		return w.logicError(fmt.Errorf("detach %s from %s: %w", tag, id, ErrNotAttached))
	}
	w.detach(e, tag)
	return nil
}

// Destroy detaches the entity from every system it is registered with and removes
// it from the table. Destroying an unknown or already destroyed id is a no-op that
// reports models.ErrEntityNotFound.
func (w *World) Destroy(id models.EntityID) error {
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("destroy %s: %w", id, models.ErrEntityNotFound)
	}

	// Mark first so hooks running below cannot re-enter destruction of the same entity.
	delete(w.entities, id)
	e.MarkDestroyed()

	tags := e.Tags()
	for i := len(tags) - 1; i >= 0; i-- {
		w.detach(e, tags[i])
	}

	w.publish(EventEntityDestroyed, id)
	return nil
}

// Step advances simulation time by dt and ticks every system once.
func (w *World) Step(dt time.Duration) error {
	w.now += dt
	w.ticks++

	err := w.dispatcher.Tick(dt.Seconds())

	if w.strict {
		for _, check := range w.audits {
			if auditErr := check(); auditErr != nil {
				panic(fmt.Errorf("world audit failed at tick %d: %w", w.ticks, auditErr))
			}
		}
	}
	return err
}

func (w *World) attach(e *models.Entity, c models.Component) error {
	s, ok := w.dispatcher.System(c.Tag())
	if !ok {
		return fmt.Errorf("%s: %w", c.Tag(), ErrSystemNotFound)
	}
	a, ok := s.(Attacher)
	if !ok {
		return fmt.Errorf("%s: %w", c.Tag(), ErrNoAttacher)
	}
	if err := e.Add(c); err != nil {
		return err
	}
	if err := a.Attach(c); err != nil {
		e.Remove(c.Tag())
		if errors.Is(err, ErrAlreadyAttached) {
			return w.logicError(err)
		}
		return err
	}
	return nil
}

func (w *World) detach(e *models.Entity, tag models.Tag) {
	if s, ok := w.dispatcher.System(tag); ok {
		if a, ok := s.(Attacher); ok {
			if err := a.Detach(e.ID()); err != nil {
				_ = w.logicError(err)
			}
		}
	}
	e.Remove(tag)
}

func (w *World) logicError(err error) error {
	if w.strict {
		panic(err)
	}
	w.logger.Debug("Tolerated logic error", log.Error(err))
	return err
}

func (w *World) publish(eventType string, id models.EntityID) {
	if err := w.bus.Publish(bus.NewEvent(eventType, "world", id, nil)); err != nil {
		w.logger.Warn("Event handler failed",
			log.String("event", eventType),
			log.Uint32("entity", uint32(id)),
			log.Error(err),
		)
	}
}
