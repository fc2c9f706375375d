package game

import (
	"fmt"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/system"
)

// Systems gives access to the installed gameplay systems.
type Systems struct {
	Factory *Factory

	Teams       *system.ComponentSystem[*Team]
	Animations  *system.ComponentSystem[*Animation]
	Engines     *system.ComponentSystem[*Engine]
	Affected    *system.ComponentSystem[*GravityAffected]
	Placements  *system.ComponentSystem[*Placement]
	Inputs      *system.ComponentSystem[*Input]
	Weapons     *system.ComponentSystem[*Weapon]
	Wells       *system.ComponentSystem[*GravityWell]
	Physics     *system.ComponentSystem[*Position]
	Projectiles *system.ComponentSystem[*Projectile]
	Combat      *system.ComponentSystem[*Combat]
	Lifetimes   *system.ComponentSystem[*Lifetime]
}

// Install registers the gameplay systems in tick order. Systems registered
// afterwards, such as replication, run after all of them.
func Install(world *system.World, grid *spatial.Grid, tuning Tuning) (*Systems, error) {
	factory := NewFactory(world, tuning)
	affected := newGravityAffected(world)

	s := &Systems{
		Factory: factory,

		Teams:       passive[*Team](world, models.TagTeam, "team"),
		Animations:  passive[*Animation](world, models.TagAnimation, "animation"),
		Engines:     passive[*Engine](world, models.TagEngine, "engine"),
		Affected:    affected,
		Placements:  newPlacement(world, grid),
		Inputs:      newInputs(world, tuning),
		Weapons:     newWeapons(world, grid, factory, tuning),
		Wells:       newGravityWells(world, affected),
		Physics:     newPhysics(world, grid, tuning),
		Projectiles: newProjectiles(world, grid),
		Combat:      newCombat(world),
		Lifetimes:   newLifetimes(world),
	}

	ordered := []system.System{
		s.Teams, s.Animations, s.Engines, s.Affected, s.Placements,
		s.Inputs, s.Weapons, s.Wells, s.Physics, s.Projectiles, s.Combat, s.Lifetimes,
	}
	for _, sys := range ordered {
		if err := world.Register(sys); err != nil {
			return nil, fmt.Errorf("install %s: %w", sys.Name(), err)
		}
	}

	world.AddAudit(grid.Audit)
	world.AddAudit(placementAudit(s.Placements, grid))
	return s, nil
}

func passive[T models.Component](world *system.World, tag models.Tag, name string) *system.ComponentSystem[T] {
	return system.NewComponentSystem(world, tag, name, system.Hooks[T]{})
}
