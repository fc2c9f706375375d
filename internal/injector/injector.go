//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/spacewar/internal/config"
	"github.com/zeusync/spacewar/internal/server"
)

func InitializeServer(cfg config.Config) (*server.Server, error) {
	wire.Build(ServerSet)
	return nil, nil
}
