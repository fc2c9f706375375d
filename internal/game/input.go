package game

import (
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/protocol"
	"github.com/zeusync/spacewar/internal/core/system"
	"github.com/zeusync/spacewar/pkg/vmath"
)

// newInputs turns the latest client input into engine forces and the weapon trigger.
func newInputs(world *system.World, tuning Tuning) *system.ComponentSystem[*Input] {
	return system.NewComponentSystem(world, models.TagNetworking, "input", system.Hooks[*Input]{
		UpdateOne: func(in *Input, _ float64) error {
			e := in.Entity()
			if eng, ok := models.ComponentOf[*Engine](e, models.TagEngine); ok {
				force := inputForce(e, in.State, tuning)
				torque := float64(in.State.Turn) * tuning.ShipTurnRate
				if force != eng.Force || torque != eng.Torque {
					eng.Force, eng.Torque = force, torque
					e.MarkChanged()
				}
			}
			if w, ok := models.ComponentOf[*Weapon](e, models.TagWeapon); ok {
				w.Trigger = in.State.Attack
			}
			return nil
		},
	})
}

// inputForce is the linear force for in: thrust along the heading plus strafe
// across it. An entity without a Position faces along +X.
func inputForce(e *models.Entity, in protocol.Input, tuning Tuning) vmath.Vec2 {
	heading := vmath.V2(1, 0)
	if pos, ok := models.ComponentOf[*Position](e, models.TagPosition); ok {
		heading = pos.Heading()
	}
	return heading.Scale(float64(in.Forward) * tuning.ShipThrust).
		Add(heading.Perp().Scale(float64(in.Strafe) * tuning.ShipStrafeThrust))
}

// ApplyInput stores in as the entity's current control state. It reports false
// when the entity takes no input.
func ApplyInput(e *models.Entity, in protocol.Input) bool {
	c, ok := models.ComponentOf[*Input](e, models.TagNetworking)
	if !ok {
		return false
	}
	c.State = in
	return true
}
