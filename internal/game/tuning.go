package game

import "time"

// Tuning holds gameplay constants. Units are world units and seconds.
type Tuning struct {
	ShipThrust       float64 `yaml:"ship_thrust"`
	ShipStrafeThrust float64 `yaml:"ship_strafe_thrust"`
	ShipTurnRate     float64 `yaml:"ship_turn_rate"`
	ShipRadius       float64 `yaml:"ship_radius"`
	ShipHealth       float64 `yaml:"ship_health"`
	MaxSpeed         float64 `yaml:"max_speed"`

	WeaponCooldown     time.Duration `yaml:"weapon_cooldown"`
	ProjectileSpeed    float64       `yaml:"projectile_speed"`
	ProjectileRadius   float64       `yaml:"projectile_radius"`
	ProjectileDamage   float64       `yaml:"projectile_damage"`
	ProjectileLifetime time.Duration `yaml:"projectile_lifetime"`

	GravityStrength float64 `yaml:"gravity_strength"`
	GravityRadius   float64 `yaml:"gravity_radius"`
}

func DefaultTuning() Tuning {
	return Tuning{
		ShipThrust:       240,
		ShipStrafeThrust: 160,
		ShipTurnRate:     3.2,
		ShipRadius:       24,
		ShipHealth:       100,
		MaxSpeed:         520,

		WeaponCooldown:     300 * time.Millisecond,
		ProjectileSpeed:    900,
		ProjectileRadius:   4,
		ProjectileDamage:   25,
		ProjectileLifetime: 1500 * time.Millisecond,

		GravityStrength: 4.0e6,
		GravityRadius:   900,
	}
}
