package game

import (
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/system"
)

type armory struct {
	grid    *spatial.Grid
	factory *Factory
	tuning  Tuning
}

func newWeapons(world *system.World, grid *spatial.Grid, factory *Factory, tuning Tuning) *system.ComponentSystem[*Weapon] {
	a := &armory{grid: grid, factory: factory, tuning: tuning}
	return system.NewComponentSystem(world, models.TagWeapon, "weapon", system.Hooks[*Weapon]{
		UpdateOne: a.update,
	})
}

// update fires one projectile from the nose of the ship when triggered and cooled
// down.
func (a *armory) update(w *Weapon, dt float64) error {
	if w.Ready > 0 {
		w.Ready -= dt
	}
	if !w.Trigger || w.Ready > 0 {
		return nil
	}

	e := w.Entity()
	pos, ok := models.ComponentOf[*Position](e, models.TagPosition)
	if !ok {
		return nil
	}
	var team uint8
	if t, ok := models.ComponentOf[*Team](e, models.TagTeam); ok {
		team = t.ID
	}
	radius := a.tuning.ShipRadius
	if c, ok := models.ComponentOf[*Combat](e, models.TagCombat); ok {
		radius = c.Radius
	}

	w.Ready = w.Cooldown
	heading := pos.Heading()
	muzzle := pos.Pos.Add(heading.Scale(radius + a.tuning.ProjectileRadius + 1))
	if !a.grid.Contains(muzzle) {
		return nil
	}
	velocity := pos.Momentum.Add(heading.Scale(a.tuning.ProjectileSpeed))
	_, err := a.factory.SpawnProjectile(e.ID(), team, muzzle, velocity)
	return err
}
