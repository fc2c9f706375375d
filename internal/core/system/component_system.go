package system

import (
	"errors"
	"fmt"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
)

// Hooks customise a ComponentSystem. A nil UpdateOne makes the system passive:
// it is never ticked.
type Hooks[T models.Component] struct {
	OnAttach  func(c T) error
	OnDetach  func(c T)
	UpdateOne func(c T, dt float64) error
}

// ComponentSystem keeps the components of one tag keyed by owning entity id.
//
// UpdateAll iterates a snapshot of the ids taken when it starts. Components
// detached during the pass are skipped, and components attached during the pass
// are not in the snapshot, so they are first updated on the next tick.
type ComponentSystem[T models.Component] struct {
	world *World
	tag   models.Tag
	name  string
	hooks Hooks[T]

	table map[models.EntityID]T
	ids   []models.EntityID
	index map[models.EntityID]int

	logger log.Log
}

func NewComponentSystem[T models.Component](world *World, tag models.Tag, name string, hooks Hooks[T]) *ComponentSystem[T] {
	return &ComponentSystem[T]{
		world:  world,
		tag:    tag,
		name:   name,
		hooks:  hooks,
		table:  make(map[models.EntityID]T),
		index:  make(map[models.EntityID]int),
		logger: world.Logger().With(log.String("system", name)),
	}
}

func (s *ComponentSystem[T]) Tag() models.Tag { return s.tag }
func (s *ComponentSystem[T]) Name() string    { return s.name }
func (s *ComponentSystem[T]) World() *World   { return s.world }
func (s *ComponentSystem[T]) Logger() log.Log { return s.logger }
func (s *ComponentSystem[T]) Len() int        { return len(s.ids) }

// Passive reports whether the system has no per-component update.
func (s *ComponentSystem[T]) Passive() bool {
	return s.hooks.UpdateOne == nil
}

func (s *ComponentSystem[T]) Attach(c models.Component) error {
	typed, ok := c.(T)
	if !ok {
		return fmt.Errorf("%s: %w: %T", s.name, ErrWrongComponent, c)
	}
	e := c.Entity()
	if e == nil {
		return fmt.Errorf("%s: %w", s.name, ErrDetachedComponent)
	}
	id := e.ID()
	if _, exists := s.table[id]; exists {
		return fmt.Errorf("%s: %w: %s", s.name, ErrAlreadyAttached, id)
	}

	s.table[id] = typed
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)

	if s.hooks.OnAttach != nil {
		if err := s.hooks.OnAttach(typed); err != nil {
			s.remove(id)
			return fmt.Errorf("%s attach %s: %w", s.name, id, err)
		}
	}
	return nil
}

func (s *ComponentSystem[T]) Detach(id models.EntityID) error {
	c, ok := s.table[id]
	if !ok {
		return fmt.Errorf("%s: %w: %s", s.name, ErrNotAttached, id)
	}
	s.remove(id)
	if s.hooks.OnDetach != nil {
		s.hooks.OnDetach(c)
	}
	return nil
}

func (s *ComponentSystem[T]) Get(id models.EntityID) (T, bool) {
	c, ok := s.table[id]
	return c, ok
}

// Each visits a snapshot of the attached components.
func (s *ComponentSystem[T]) Each(fn func(T)) {
	for _, id := range s.snapshot() {
		if c, ok := s.table[id]; ok {
			fn(c)
		}
	}
}

func (s *ComponentSystem[T]) Update(dt float64) error {
	return s.UpdateAll(dt)
}

// UpdateAll runs UpdateOne for every component in the snapshot. A failing or
// panicking component is recorded and left as is; the pass continues.
func (s *ComponentSystem[T]) UpdateAll(dt float64) error {
	if s.hooks.UpdateOne == nil {
		return nil
	}

	var all error
	failed := 0
	for _, id := range s.snapshot() {
		c, ok := s.table[id]
		if !ok {
			continue
		}
		if err := s.updateOne(c, dt); err != nil {
			failed++
			all = errors.Join(all, err)
		}
	}

	if failed > 0 {
		s.logger.Warn("Component updates failed", log.Int("failed", failed), log.Error(all))
	}
	return all
}

func (s *ComponentSystem[T]) updateOne(c T, dt float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s update panicked: %v", s.name, r)
		}
	}()
	return s.hooks.UpdateOne(c, dt)
}

func (s *ComponentSystem[T]) snapshot() []models.EntityID {
	ids := make([]models.EntityID, len(s.ids))
	copy(ids, s.ids)
	return ids
}

func (s *ComponentSystem[T]) remove(id models.EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	last := len(s.ids) - 1
	if i != last {
		moved := s.ids[last]
		s.ids[i] = moved
		s.index[moved] = i
	}
	s.ids = s.ids[:last]
	delete(s.index, id)
	delete(s.table, id)
}
