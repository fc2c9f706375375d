package game

import (
	"errors"
	"fmt"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/system"
)

// newPlacement keeps placed entities in the grid. It is passive: physics moves the
// grid entry as soon as the position changes.
func newPlacement(world *system.World, grid *spatial.Grid) *system.ComponentSystem[*Placement] {
	logger := world.Logger().With(log.String("system", "placement"))

	return system.NewComponentSystem(world, models.TagWorld, "placement", system.Hooks[*Placement]{
		OnAttach: func(pl *Placement) error {
			e := pl.Entity()
			pos, ok := models.ComponentOf[*Position](e, models.TagPosition)
			if !ok {
				return ErrMissingPosition
			}
			if err := grid.Insert(e.ID(), pos.Pos); err != nil {
				return err
			}
			pl.grid = grid
			pl.position = pos
			pos.placement = pl
			return nil
		},
		OnDetach: func(pl *Placement) {
			id := pl.Entity().ID()
			if err := grid.Remove(id); err != nil && !errors.Is(err, spatial.ErrNotPresent) {
				logger.Warn("Grid removal failed", log.Uint32("entity", uint32(id)), log.Error(err))
			}
			if pl.position != nil {
				pl.position.placement = nil
				pl.position = nil
			}
		},
	})
}

func (pl *Placement) sync() error {
	if pl.position == nil || pl.grid == nil {
		return nil
	}
	if _, err := pl.grid.Relocate(pl.Entity().ID(), pl.position.Pos); err != nil {
		return fmt.Errorf("relocate: %w", err)
	}
	return nil
}

// placementAudit checks that every placed entity sits in the cell of its position.
func placementAudit(placements *system.ComponentSystem[*Placement], grid *spatial.Grid) func() error {
	return func() error {
		var all error
		placements.Each(func(pl *Placement) {
			if pl.position == nil {
				all = errors.Join(all, fmt.Errorf("%s: placement without position", pl.Entity().ID()))
				return
			}
			id := pl.Entity().ID()
			want, err := grid.CellOf(pl.position.Pos)
			if err != nil {
				all = errors.Join(all, fmt.Errorf("%s: %w", id, err))
				return
			}
			if got, ok := grid.Locate(id); !ok || got != want {
				all = errors.Join(all, fmt.Errorf("%s: in cell %s, position maps to %s", id, got, want))
			}
		})
		return all
	}
}
