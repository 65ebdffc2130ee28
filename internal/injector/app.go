package injector

import (
	"github.com/zeusync/swimrace/internal/core/events/bus"
	"github.com/zeusync/swimrace/internal/core/observability/log"
	"github.com/zeusync/swimrace/internal/server"
	"github.com/zeusync/swimrace/internal/sim"
)

// App is the wired process graph used by cmd/racesim.
type App struct {
	Simulator *sim.Simulator
	Feed      *server.FrameFeed
	Bus       bus.EventBus
	Logger    *log.Logger
}
