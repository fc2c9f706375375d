package game

import (
	"math"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/system"
)

// minGravityDist softens the pull close to the centre of a well.
const minGravityDist = 32.0

type gravity struct {
	affected *system.ComponentSystem[*GravityAffected]
}

func newGravityAffected(world *system.World) *system.ComponentSystem[*GravityAffected] {
	return system.NewComponentSystem(world, models.TagGravityAffected, "gravity-affected", system.Hooks[*GravityAffected]{})
}

// newGravityWells accelerates every gravity-affected entity within a well's radius
// towards its centre. Runs before physics so the change is integrated the same tick.
func newGravityWells(world *system.World, affected *system.ComponentSystem[*GravityAffected]) *system.ComponentSystem[*GravityWell] {
	g := &gravity{affected: affected}
	return system.NewComponentSystem(world, models.TagGravityWell, "gravity-well", system.Hooks[*GravityWell]{
		UpdateOne: g.update,
	})
}

func (g *gravity) update(well *GravityWell, dt float64) error {
	self := well.Entity()
	center, ok := models.ComponentOf[*Position](self, models.TagPosition)
	if !ok {
		return nil
	}
	radiusSq := well.Radius * well.Radius

	g.affected.Each(func(a *GravityAffected) {
		e := a.Entity()
		if e == self {
			return
		}
		pos, ok := models.ComponentOf[*Position](e, models.TagPosition)
		if !ok {
			return
		}
		d := center.Pos.Sub(pos.Pos)
		distSq := d.LenSq()
		if distSq > radiusSq || distSq == 0 {
			return
		}
		pull := well.Strength / math.Max(distSq, minGravityDist*minGravityDist)
		pos.Momentum = pos.Momentum.Add(d.Normalize().Scale(pull * dt))
	})
	return nil
}
