package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/internal/config"
)

func TestInitializeServer(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Match.Tokens = []config.TokenConfig{{Value: "alpha", Team: 1}}

	srv, err := InitializeServer(cfg)
	require.NoError(t, err)

	names := make([]string, 0)
	for _, s := range srv.World().Dispatcher().Systems() {
		names = append(names, s.Name())
	}
	require.NotEmpty(t, names)
	assert.Equal(t, "replication", names[len(names)-1])
	assert.Equal(t, 1+cfg.World.Asteroids, srv.World().Len())
}

func TestInitializeServer_InvalidWorld(t *testing.T) {
	cfg := config.Default()
	cfg.World.CellWidth = 0

	_, err := InitializeServer(cfg)
	assert.Error(t, err)
}
