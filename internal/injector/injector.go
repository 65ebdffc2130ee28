//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/events/bus"
	"github.com/zeusync/swimrace/internal/core/observability/log"
	"github.com/zeusync/swimrace/internal/core/systems/physics/solver"
	"github.com/zeusync/swimrace/internal/server"
	"github.com/zeusync/swimrace/internal/sim"
)

var appSet = wire.NewSet(
	config.ProvideBalance,
	config.ProvideCatalog,
	config.ProvideLogLevel,
	log.Provide,
	wire.Bind(new(log.Log), new(*log.Logger)),
	solver.Provide,
	bus.New,
	sim.New,
	server.NewFrameFeed,
	wire.Struct(new(App), "*"),
)

func InitializeApp(settings config.Settings, feedConfig server.Config) (*App, error) {
	wire.Build(appSet)
	return nil, nil
}
