package game

import (
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/protocol"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/pkg/encoding"
	"github.com/zeusync/spacewar/pkg/vmath"
)

// Position is the kinematic state of an entity.
type Position struct {
	models.Base
	Pos             vmath.Vec2
	Momentum        vmath.Vec2
	Direction       float64
	AngularMomentum float64

	placement *Placement
}

func (*Position) Tag() models.Tag { return models.TagPosition }

func (p *Position) MarshalWire(w *encoding.Writer) {
	w.WriteFloat32(float32(p.Pos.X))
	w.WriteFloat32(float32(p.Pos.Y))
	w.WriteFloat32(float32(p.Momentum.X))
	w.WriteFloat32(float32(p.Momentum.Y))
	w.WriteFloat32(float32(p.Direction))
	w.WriteFloat32(float32(p.AngularMomentum))
}

func (p *Position) UnmarshalWire(r *encoding.Reader) error {
	p.Pos = vmath.V2(float64(r.ReadFloat32()), float64(r.ReadFloat32()))
	p.Momentum = vmath.V2(float64(r.ReadFloat32()), float64(r.ReadFloat32()))
	p.Direction = float64(r.ReadFloat32())
	p.AngularMomentum = float64(r.ReadFloat32())
	return r.Err()
}

// Heading is the unit vector the entity faces.
func (p *Position) Heading() vmath.Vec2 {
	return vmath.FromAngle(p.Direction)
}

// Placement puts an entity into the spatial grid at its Position.
type Placement struct {
	models.Base
	grid     *spatial.Grid
	position *Position
}

func (*Placement) Tag() models.Tag { return models.TagWorld }

// Engine holds the forces currently applied to an entity.
type Engine struct {
	models.Base
	Force  vmath.Vec2
	Torque float64
}

func (*Engine) Tag() models.Tag { return models.TagEngine }

func (e *Engine) MarshalWire(w *encoding.Writer) {
	w.WriteFloat32(float32(e.Force.X))
	w.WriteFloat32(float32(e.Force.Y))
	w.WriteFloat32(float32(e.Torque))
}

func (e *Engine) UnmarshalWire(r *encoding.Reader) error {
	e.Force.X = float64(r.ReadFloat32())
	e.Force.Y = float64(r.ReadFloat32())
	e.Torque = float64(r.ReadFloat32())
	return r.Err()
}

// Animation names the visual resource clients draw for an entity.
type Animation struct {
	models.Base
	Resource string
}

func (*Animation) Tag() models.Tag { return models.TagAnimation }

func (a *Animation) MarshalWire(w *encoding.Writer) {
	w.WriteString(a.Resource)
}

func (a *Animation) UnmarshalWire(r *encoding.Reader) error {
	a.Resource = r.ReadString()
	return r.Err()
}

// GravityAffected marks entities pulled by gravity wells. It has no payload.
type GravityAffected struct {
	models.Base
}

func (*GravityAffected) Tag() models.Tag { return models.TagGravityAffected }

func (*GravityAffected) MarshalWire(*encoding.Writer) {}

func (*GravityAffected) UnmarshalWire(*encoding.Reader) error { return nil }

// Input is the latest control state received from the owning client.
type Input struct {
	models.Base
	State protocol.Input
}

func (*Input) Tag() models.Tag { return models.TagNetworking }

// GravityWell pulls gravity-affected entities within Radius.
type GravityWell struct {
	models.Base
	Strength float64
	Radius   float64
}

func (*GravityWell) Tag() models.Tag { return models.TagGravityWell }

// Lifetime destroys its entity once Remaining runs out.
type Lifetime struct {
	models.Base
	Remaining float64
}

func (*Lifetime) Tag() models.Tag { return models.TagLifetime }

// Combat is the damageable state of an entity.
type Combat struct {
	models.Base
	Health    float64
	MaxHealth float64
	Radius    float64
	LastHitBy models.EntityID
}

func (*Combat) Tag() models.Tag { return models.TagCombat }

// Damage lowers health and remembers the attacker.
func (c *Combat) Damage(amount float64, by models.EntityID) {
	c.Health -= amount
	c.LastHitBy = by
}

func (c *Combat) Dead() bool {
	return c.Health <= 0
}

// Weapon fires projectiles while triggered, at most once per Cooldown.
type Weapon struct {
	models.Base
	Cooldown float64
	Ready    float64
	Trigger  bool
}

func (*Weapon) Tag() models.Tag { return models.TagWeapon }

// Projectile damages the first enemy it touches and disappears.
type Projectile struct {
	models.Base
	Owner  models.EntityID
	Team   uint8
	Damage float64
	Radius float64
}

func (*Projectile) Tag() models.Tag { return models.TagProjectile }

// Team is passive membership data.
type Team struct {
	models.Base
	ID uint8
}

func (*Team) Tag() models.Tag { return models.TagTeam }

// Decoders reads the serializable components back from the wire.
func Decoders() protocol.Decoders {
	return protocol.Decoders{
		models.TagPosition:        decodeInto(func() wireComponent { return &Position{} }),
		models.TagAnimation:       decodeInto(func() wireComponent { return &Animation{} }),
		models.TagEngine:          decodeInto(func() wireComponent { return &Engine{} }),
		models.TagGravityAffected: decodeInto(func() wireComponent { return &GravityAffected{} }),
	}
}

type wireComponent interface {
	encoding.Marshaler
	encoding.Unmarshaler
}

func decodeInto(fresh func() wireComponent) protocol.ComponentDecoder {
	return func(r *encoding.Reader) (encoding.Marshaler, error) {
		c := fresh()
		if err := c.UnmarshalWire(r); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Locate returns the entity's position, if it has one.
func Locate(e *models.Entity) (vmath.Vec2, bool) {
	p, ok := models.ComponentOf[*Position](e, models.TagPosition)
	if !ok {
		return vmath.Vec2{}, false
	}
	return p.Pos, true
}
