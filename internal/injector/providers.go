package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/spacewar/internal/config"
	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/server"
)

// ServerSet builds a match server from a loaded configuration.
var ServerSet = wire.NewSet(
	ProvideLogger,
	server.ProvideGrid,
	server.ProvideWorld,
	server.ProvideGame,
	server.ProvideReplication,
	server.ProvideAdmission,
	server.ProvideLoop,
	server.New,
)

func ProvideLogger(cfg config.Config) (log.Log, error) {
	return cfg.Log.Logger()
}
