package system

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
)

type entry struct {
	system  System
	updater Updater
	metrics Metrics
	removed bool
}

// Dispatcher holds one system per tag and ticks the updaters in registration order.
type Dispatcher struct {
	byTag  [models.TagCount]*entry
	order  []*entry
	logger log.Log
}

func NewDispatcher(logger log.Log) *Dispatcher {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Dispatcher{
		logger: logger.With(log.String("component", "dispatcher")),
	}
}

func (d *Dispatcher) Register(s System) error {
	tag := s.Tag()
	if !tag.Valid() {
		return fmt.Errorf("register %s: %w", s.Name(), models.ErrInvalidTag)
	}
	if existing := d.byTag[tag]; existing != nil {
		return fmt.Errorf("register %s: %w: %s held by %s", s.Name(), ErrDuplicateSystem, tag, existing.system.Name())
	}

	e := &entry{system: s}
	if u, ok := s.(Updater); ok {
		if p, ok := s.(Passive); !ok || !p.Passive() {
			e.updater = u
		}
	}
	d.byTag[tag] = e
	d.order = append(d.order, e)

	d.logger.Debug("System registered",
		log.String("system", s.Name()),
		log.Stringer("tag", tag),
		log.Bool("ticked", e.updater != nil),
	)
	return nil
}

// Unregister removes the system for tag. Safe to call from inside a tick;
// the removed system is not invoked again.
func (d *Dispatcher) Unregister(tag models.Tag) error {
	if !tag.Valid() || d.byTag[tag] == nil {
		return fmt.Errorf("unregister %s: %w", tag, ErrSystemNotFound)
	}
	e := d.byTag[tag]
	e.removed = true
	d.byTag[tag] = nil

	order := make([]*entry, 0, len(d.order))
	for _, candidate := range d.order {
		if candidate != e {
			order = append(order, candidate)
		}
	}
	d.order = order

	d.logger.Debug("System unregistered", log.String("system", e.system.Name()))
	return nil
}

func (d *Dispatcher) System(tag models.Tag) (System, bool) {
	if !tag.Valid() || d.byTag[tag] == nil {
		return nil, false
	}
	return d.byTag[tag].system, true
}

// Systems lists registered systems in registration order.
func (d *Dispatcher) Systems() []System {
	out := make([]System, 0, len(d.order))
	for _, e := range d.order {
		out = append(out, e.system)
	}
	return out
}

func (d *Dispatcher) Metrics(tag models.Tag) (Metrics, bool) {
	if !tag.Valid() || d.byTag[tag] == nil {
		return Metrics{}, false
	}
	return d.byTag[tag].metrics, true
}

// Tick runs every updater once. A failing system is logged and skipped;
// the remaining systems still run. The joined failures are returned.
func (d *Dispatcher) Tick(dt float64) error {
	snapshot := make([]*entry, len(d.order))
	copy(snapshot, d.order)

	var all error
	for _, e := range snapshot {
		if e.removed || e.updater == nil {
			continue
		}
		if err := d.run(e, dt); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}

func (d *Dispatcher) run(e *entry, dt float64) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.metrics.PanicCount++
			err = fmt.Errorf("system %s panicked: %v", e.system.Name(), r)
			d.logger.Error("System panicked",
				log.String("system", e.system.Name()),
				log.Any("panic", r),
				log.String("stack", string(debug.Stack())),
			)
		}

		elapsed := time.Since(start)
		e.metrics.ExecutionCount++
		e.metrics.LastExecutionTime = elapsed
		e.metrics.TotalExecutionTime += elapsed
		if elapsed > e.metrics.MaxExecutionTime {
			e.metrics.MaxExecutionTime = elapsed
		}
		if err != nil {
			e.metrics.ErrorCount++
			e.metrics.LastError = err
		}
	}()

	if err = e.updater.Update(dt); err != nil {
		err = fmt.Errorf("system %s: %w", e.system.Name(), err)
		d.logger.Warn("System update failed",
			log.String("system", e.system.Name()),
			log.Error(err),
		)
	}
	return err
}
