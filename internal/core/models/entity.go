package models

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/zeusync/spacewar/pkg/encoding"
)

// EntityID is unique for the lifetime of a world and never reused.
type EntityID uint32

// NoEntity is never allocated.
const NoEntity EntityID = 0

func (id EntityID) String() string {
	return fmt.Sprintf("entity#%d", uint32(id))
}

var (
	ErrComponentBound  = errors.New("component already bound to an entity")
	ErrDuplicateTag    = errors.New("entity already has a component with this tag")
	ErrInvalidTag      = errors.New("invalid component tag")
	ErrEntityNotFound  = errors.New("entity not found")
	ErrEntityDestroyed = errors.New("entity destroyed")
)

// Stamp orders changes and sends within a world. Later events always get larger stamps.
type Stamp uint64

// Clock hands out stamps. One clock is shared by every entity of a world.
type Clock struct {
	last atomic.Uint64
}

func (c *Clock) Next() Stamp {
	return Stamp(c.last.Add(1))
}

func (c *Clock) Last() Stamp {
	return Stamp(c.last.Load())
}

// Component is one capability attached to one entity. Concrete components embed Base.
type Component interface {
	Tag() Tag
	Entity() *Entity
	bind(e *Entity)
}

// Serializable components are included in Create/Update payloads.
type Serializable interface {
	Component
	encoding.Marshaler
}

// Base carries the back-reference from a component to its owner. The entity owns the
// component; the reference is only valid while the entity is alive.
type Base struct {
	owner *Entity
}

func (b *Base) Entity() *Entity {
	return b.owner
}

func (b *Base) bind(e *Entity) {
	b.owner = e
}

// Entity is an id plus at most one component per tag.
type Entity struct {
	id           EntityID
	components   [TagCount]Component
	serializable bool
	destroyed    bool
	lastChanged  Stamp
	clock        *Clock
}

// NewEntity builds a detached entity. Worlds allocate ids; tests may call this directly.
func NewEntity(id EntityID, serializable bool, clock *Clock) *Entity {
	if clock == nil {
		clock = &Clock{}
	}
	e := &Entity{id: id, serializable: serializable, clock: clock}
	e.lastChanged = clock.Next()
	return e
}

func (e *Entity) ID() EntityID {
	return e.id
}

func (e *Entity) Serializable() bool {
	return e.serializable
}

func (e *Entity) Destroyed() bool {
	return e.destroyed
}

// MarkDestroyed flags the entity as removed from its world.
func (e *Entity) MarkDestroyed() {
	e.destroyed = true
}

func (e *Entity) LastChanged() Stamp {
	return e.lastChanged
}

// MarkChanged records that replicated state changed in the current tick.
func (e *Entity) MarkChanged() {
	e.lastChanged = e.clock.Next()
}

// Add binds c to e. The component must not belong to another entity and the tag must be free.
func (e *Entity) Add(c Component) error {
	tag := c.Tag()
	if !tag.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTag, uint8(tag))
	}
	if owner := c.Entity(); owner != nil && owner != e {
		return fmt.Errorf("%w: %s owned by %s", ErrComponentBound, tag, owner.id)
	}
	if e.components[tag] != nil {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateTag, tag, e.id)
	}
	c.bind(e)
	e.components[tag] = c
	return nil
}

// Remove unbinds the component with the given tag and returns it.
func (e *Entity) Remove(tag Tag) (Component, bool) {
	if !tag.Valid() {
		return nil, false
	}
	c := e.components[tag]
	if c == nil {
		return nil, false
	}
	e.components[tag] = nil
	c.bind(nil)
	return c, true
}

func (e *Entity) Get(tag Tag) (Component, bool) {
	if !tag.Valid() {
		return nil, false
	}
	c := e.components[tag]
	return c, c != nil
}

func (e *Entity) Has(tag Tag) bool {
	return tag.Valid() && e.components[tag] != nil
}

// Tags lists attached tags in ascending order.
func (e *Entity) Tags() []Tag {
	tags := make([]Tag, 0, 4)
	for t := TagNone + 1; t < TagCount; t++ {
		if e.components[t] != nil {
			tags = append(tags, t)
		}
	}
	return tags
}

// EachSerializable visits serializable components in ascending tag order.
func (e *Entity) EachSerializable(fn func(Serializable)) {
	for t := TagNone + 1; t < TagCount; t++ {
		if s, ok := e.components[t].(Serializable); ok {
			fn(s)
		}
	}
}

// ComponentOf returns the component with the given tag typed as T.
func ComponentOf[T Component](e *Entity, tag Tag) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}
	c, ok := e.Get(tag)
	if !ok {
		return zero, false
	}
	typed, ok := c.(T)
	return typed, ok
}
