package game

import (
	"errors"
	"math"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/system"
	"github.com/zeusync/spacewar/pkg/vmath"
)

var ErrMissingPosition = errors.New("placement requires a position component")

type physics struct {
	width  float64
	height float64
	tuning Tuning
}

// newPhysics integrates every Position once per tick. Entities leaving the world
// bounce off its edges.
func newPhysics(world *system.World, grid *spatial.Grid, tuning Tuning) *system.ComponentSystem[*Position] {
	cfg := grid.Config()
	p := &physics{width: cfg.Width, height: cfg.Height, tuning: tuning}
	return system.NewComponentSystem(world, models.TagPosition, "physics", system.Hooks[*Position]{
		OnDetach:  unlinkPosition,
		UpdateOne: p.update,
	})
}

func (p *physics) update(pos *Position, dt float64) error {
	e := pos.Entity()

	if eng, ok := models.ComponentOf[*Engine](e, models.TagEngine); ok {
		if !eng.Force.IsZero() {
			pos.Momentum = pos.Momentum.Add(eng.Force.Scale(dt))
		}
		pos.AngularMomentum = eng.Torque
		// Only propelled entities are capped; projectiles keep their launch speed.
		if p.tuning.MaxSpeed > 0 {
			pos.Momentum = pos.Momentum.ClampLen(p.tuning.MaxSpeed)
		}
	}
	if pos.Momentum.IsZero() && pos.AngularMomentum == 0 {
		return nil
	}

	next := pos.Pos.Add(pos.Momentum.Scale(dt))
	next.X, pos.Momentum.X = bounce(next.X, pos.Momentum.X, p.width)
	next.Y, pos.Momentum.Y = bounce(next.Y, pos.Momentum.Y, p.height)
	pos.Pos = next
	pos.Direction = vmath.WrapAngle(pos.Direction + pos.AngularMomentum*dt)
	e.MarkChanged()

	if pos.placement != nil {
		return pos.placement.sync()
	}
	return nil
}

// bounce reflects a coordinate that left [0,limit) back inside and turns the
// velocity component inwards.
func bounce(at, vel, limit float64) (float64, float64) {
	switch {
	case at < 0:
		at, vel = -at, math.Abs(vel)
	case at >= limit:
		at, vel = 2*limit-at, -math.Abs(vel)
	default:
		return at, vel
	}
	return math.Max(0, math.Min(at, math.Nextafter(limit, 0))), vel
}

func unlinkPosition(pos *Position) {
	if pos.placement != nil {
		pos.placement.position = nil
		pos.placement = nil
	}
}
