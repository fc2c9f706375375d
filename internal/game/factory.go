package game

import (
	"math"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/system"
	"github.com/zeusync/spacewar/pkg/vmath"
)

// Animation resources known to clients.
const (
	ResourceShip        = "ship"
	ResourceProjectile  = "projectile"
	ResourceGravityWell = "gravity-well"
	ResourceAsteroid    = "asteroid"
)

// Factory assembles the entity kinds of the game. Callers hold the world lock.
type Factory struct {
	world  *system.World
	tuning Tuning
}

func NewFactory(world *system.World, tuning Tuning) *Factory {
	return &Factory{world: world, tuning: tuning}
}

func (f *Factory) Tuning() Tuning { return f.tuning }

// SpawnShip creates a player controlled ship facing heading (radians).
func (f *Factory) SpawnShip(team uint8, at vmath.Vec2, heading float64) (*models.Entity, error) {
	return f.world.Spawn(true,
		&Position{Pos: at, Direction: vmath.WrapAngle(heading)},
		&Placement{},
		&Animation{Resource: ResourceShip},
		&Engine{},
		&GravityAffected{},
		&Combat{Health: f.tuning.ShipHealth, MaxHealth: f.tuning.ShipHealth, Radius: f.tuning.ShipRadius},
		&Weapon{Cooldown: f.tuning.WeaponCooldown.Seconds()},
		&Team{ID: team},
		&Input{},
	)
}

func (f *Factory) SpawnProjectile(owner models.EntityID, team uint8, at, velocity vmath.Vec2) (*models.Entity, error) {
	return f.world.Spawn(true,
		&Position{Pos: at, Momentum: velocity, Direction: vmath.WrapAngle(math.Atan2(velocity.Y, velocity.X))},
		&Placement{},
		&Animation{Resource: ResourceProjectile},
		&Lifetime{Remaining: f.tuning.ProjectileLifetime.Seconds()},
		&Projectile{Owner: owner, Team: team, Damage: f.tuning.ProjectileDamage, Radius: f.tuning.ProjectileRadius},
	)
}

// SpawnGravityWell creates a stationary well. Zero strength or radius use the tuning.
func (f *Factory) SpawnGravityWell(at vmath.Vec2, strength, radius float64) (*models.Entity, error) {
	if strength == 0 {
		strength = f.tuning.GravityStrength
	}
	if radius == 0 {
		radius = f.tuning.GravityRadius
	}
	return f.world.Spawn(true,
		&Position{Pos: at},
		&Placement{},
		&Animation{Resource: ResourceGravityWell},
		&GravityWell{Strength: strength, Radius: radius},
	)
}

// SpawnAsteroid creates drifting debris that absorbs fire.
func (f *Factory) SpawnAsteroid(at, velocity vmath.Vec2, radius, spin float64) (*models.Entity, error) {
	return f.world.Spawn(true,
		&Position{Pos: at, Momentum: velocity, AngularMomentum: spin},
		&Placement{},
		&Animation{Resource: ResourceAsteroid},
		&GravityAffected{},
		&Combat{Health: radius * 2, MaxHealth: radius * 2, Radius: radius},
	)
}
