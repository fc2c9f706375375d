package game

import (
	"github.com/zeusync/spacewar/internal/core/events/bus"
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/system"
)

// EventCasualty is published after an entity was destroyed by damage. Handlers run
// on the simulation goroutine with the world lock held.
const EventCasualty = "combat.casualty"

// Casualty is the payload of EventCasualty.
type Casualty struct {
	Entity models.EntityID
	Killer models.EntityID
}

func newCombat(world *system.World) *system.ComponentSystem[*Combat] {
	logger := world.Logger().With(log.String("system", "combat"))

	return system.NewComponentSystem(world, models.TagCombat, "combat", system.Hooks[*Combat]{
		UpdateOne: func(c *Combat, _ float64) error {
			if !c.Dead() {
				return nil
			}
			id := c.Entity().ID()
			casualty := Casualty{Entity: id, Killer: c.LastHitBy}
			if err := world.Destroy(id); err != nil {
				return err
			}
			if err := world.Bus().Publish(bus.NewEvent(EventCasualty, "combat", casualty, nil)); err != nil {
				logger.Warn("Casualty handler failed", log.Uint32("entity", uint32(id)), log.Error(err))
			}
			return nil
		},
	})
}
