package game

import (
	"github.com/zeusync/spacewar/internal/core/collision"
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/system"
)

type ballistics struct {
	world *system.World
	grid  *spatial.Grid
	near  []models.EntityID
}

func newProjectiles(world *system.World, grid *spatial.Grid) *system.ComponentSystem[*Projectile] {
	b := &ballistics{world: world, grid: grid}
	return system.NewComponentSystem(world, models.TagProjectile, "projectile", system.Hooks[*Projectile]{
		UpdateOne: b.update,
	})
}

// update sweeps the path the projectile covered this tick against every damageable
// neighbour. The first hit takes the damage and the projectile is destroyed.
func (b *ballistics) update(p *Projectile, dt float64) error {
	e := p.Entity()
	pos, ok := models.ComponentOf[*Position](e, models.TagPosition)
	if !ok {
		return nil
	}
	trail := collision.Line{Start: pos.Pos.Sub(pos.Momentum.Scale(dt)), End: pos.Pos}

	var err error
	b.near, err = b.grid.AppendNeighborhood(b.near[:0], pos.Pos)
	if err != nil {
		return err
	}

	for _, id := range b.near {
		if id == e.ID() || id == p.Owner {
			continue
		}
		target, ok := b.world.Entity(id)
		if !ok {
			continue
		}
		combat, ok := models.ComponentOf[*Combat](target, models.TagCombat)
		if !ok || combat.Dead() {
			continue
		}
		if team, ok := models.ComponentOf[*Team](target, models.TagTeam); ok && team.ID == p.Team {
			continue
		}
		at, ok := models.ComponentOf[*Position](target, models.TagPosition)
		if !ok {
			continue
		}

		hit, err := collision.Test(trail, collision.Circle{Center: at.Pos, Radius: combat.Radius + p.Radius})
		if err != nil {
			return err
		}
		if hit {
			combat.Damage(p.Damage, p.Owner)
			return b.world.Destroy(e.ID())
		}
	}
	return nil
}
