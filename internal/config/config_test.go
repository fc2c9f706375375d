package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/internal/core/spatial"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())

	grid, err := Default().World.Grid()
	require.NoError(t, err)
	assert.Equal(t, spatial.Neighborhood3x3, grid.Neighborhood)
	assert.Equal(t, 50*time.Millisecond, Default().Simulation.Loop().Period)
	assert.Zero(t, Default().Simulation.Loop().MaxStep)
}

func TestDecode_OverridesDefaults(t *testing.T) {
	src := `
log:
  level: debug
simulation:
  tick_rate: 30
world:
  neighborhood: 3x2
replication:
  keep_alive: 500ms
match:
  countdown: 5s
  tokens:
    - value: alpha
      team: 1
    - value: bravo
      team: 2
tuning:
  ship_health: 150
`
	cfg, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Simulation.TickRate)
	assert.Equal(t, "3x2", cfg.World.Neighborhood)
	assert.Equal(t, 4000.0, cfg.World.Width)
	assert.Equal(t, 500*time.Millisecond, cfg.Replication.Engine().KeepAlive)
	assert.Equal(t, 5*time.Second, cfg.Match.Countdown)
	assert.Equal(t, []TokenConfig{{Value: "alpha", Team: 1}, {Value: "bravo", Team: 2}}, cfg.Match.Tokens)
	assert.Equal(t, 150.0, cfg.Tuning.ShipHealth)
	assert.Equal(t, Default().Tuning.ShipThrust, cfg.Tuning.ShipThrust)
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "simulation:\n  tickrate: 10\n"},
		{"zero tick rate", "simulation:\n  tick_rate: 0\n"},
		{"cell larger than world", "world:\n  width: 100\n  cell_width: 500\n"},
		{"bad neighborhood", "world:\n  neighborhood: 5x5\n"},
		{"duplicate token", "match:\n  tokens:\n    - value: a\n    - value: a\n"},
		{"empty token", "match:\n  tokens:\n    - team: 1\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"zero keep alive", "replication:\n  keep_alive: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
