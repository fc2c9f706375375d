package server

import (
	"fmt"

	"github.com/zeusync/spacewar/internal/config"
	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/replication"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/system"
	"github.com/zeusync/spacewar/internal/game"
	"github.com/zeusync/spacewar/internal/simulation"
)

func ProvideGrid(cfg config.Config) (*spatial.Grid, error) {
	gc, err := cfg.World.Grid()
	if err != nil {
		return nil, err
	}
	return spatial.NewGrid(gc)
}

func ProvideWorld(cfg config.Config, logger log.Log) *system.World {
	return system.NewWorld(system.WithLogger(logger), system.WithStrict(cfg.Simulation.Strict))
}

// ProvideGame installs the gameplay systems.
func ProvideGame(cfg config.Config, world *system.World, grid *spatial.Grid) (*game.Systems, error) {
	return game.Install(world, grid, cfg.Tuning)
}

// ProvideReplication registers replication after the gameplay systems so it observes
// the state of the finished tick.
func ProvideReplication(cfg config.Config, world *system.World, grid *spatial.Grid, _ *game.Systems) (*replication.Engine, error) {
	repl := replication.New(world, grid, game.Locate, cfg.Replication.Engine())
	if err := world.Register(repl); err != nil {
		return nil, err
	}
	return repl, nil
}

func ProvideAdmission(cfg config.Config) (*Admission, error) {
	a := NewAdmission(cfg.Match.TicketSecret)
	for _, t := range cfg.Match.Tokens {
		if err := a.Register(t.Value, t.Team); err != nil {
			return nil, fmt.Errorf("token for team %d: %w", t.Team, err)
		}
	}
	return a, nil
}

func ProvideLoop(cfg config.Config, world *system.World, logger log.Log) *simulation.Loop {
	return simulation.New(world, cfg.Simulation.Loop(), logger)
}

// Build assembles a server from cfg.
func Build(cfg config.Config, logger log.Log) (*Server, error) {
	grid, err := ProvideGrid(cfg)
	if err != nil {
		return nil, err
	}
	world := ProvideWorld(cfg, logger)
	systems, err := ProvideGame(cfg, world, grid)
	if err != nil {
		return nil, err
	}
	repl, err := ProvideReplication(cfg, world, grid, systems)
	if err != nil {
		return nil, err
	}
	admission, err := ProvideAdmission(cfg)
	if err != nil {
		return nil, err
	}
	loop := ProvideLoop(cfg, world, logger)
	return New(cfg, logger, world, grid, systems, repl, admission, loop)
}
