package game

import (
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/system"
)

func newLifetimes(world *system.World) *system.ComponentSystem[*Lifetime] {
	return system.NewComponentSystem(world, models.TagLifetime, "lifetime", system.Hooks[*Lifetime]{
		UpdateOne: func(l *Lifetime, dt float64) error {
			l.Remaining -= dt
			if l.Remaining > 0 {
				return nil
			}
			return world.Destroy(l.Entity().ID())
		},
	})
}
