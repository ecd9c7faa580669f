// Command tourplugin is the tour guide built as a shared library for the
// host engine:
//
//	go build -buildmode=c-shared -o tourguide.so ./cmd/tourplugin
//
// The host loads it, registers its callback with TourPluginRegisterHost and
// then sends :TOUR: commands through TourPluginArgs.
package main

import "C"

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/timewalk/tourguide/internal/app"
	"github.com/timewalk/tourguide/internal/catalog"
	"github.com/timewalk/tourguide/internal/config"
	"github.com/timewalk/tourguide/internal/dispatcher"
	"github.com/timewalk/tourguide/pkg/engine"
	"github.com/timewalk/tourguide/pkg/hostbridge"
	"github.com/timewalk/tourguide/pkg/hostproto"
)

// BuildDate and Version can be set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// tickQueueSize bounds ticks queued behind a slow tick; the host blocks
// rather than drop telemetry once it fills.
const tickQueueSize = 64

func hostFromCallback(cat *catalog.Catalog, logger *slog.Logger) (engine.Host, error) {
	keywords := slices.Concat(cat.OutdoorKeywords(), config.GetOutdoorKeywords())
	client := hostproto.New(hostbridge.Transport{}, logger)
	return client.Host(cat, catalog.NewTerrain(keywords...)), nil
}

func load() {
	a, err := app.New(app.Options{
		ConfigDir:   hostbridge.ModuleDir(),
		Name:        "tourplugin",
		Host:        hostFromCallback,
		TickOptions: []dispatcher.Option{dispatcher.Buffered(tickQueueSize), dispatcher.Blocking()},
	})
	if err != nil {
		// commands keep answering "unknown command" until the host reloads
		fmt.Fprintf(os.Stderr, "tourplugin: startup failed: %v\n", err)
		return
	}
	if err := a.Start(); err != nil {
		a.Logger.Error("Failed to start background services", "error", err)
	}
	hostbridge.SetDispatcher(a.Dispatcher)
	hostbridge.OnUnload(func() {
		hostbridge.SetDispatcher(nil)
		if err := a.Close(); err != nil {
			a.Logger.Error("Shutdown incomplete", "error", err)
		}
	})
	a.Logger.Info("Plugin loaded", "version", Version, "buildDate", BuildDate)
}

func init() {
	hostbridge.SetVersion(Version)
	hostbridge.OnLoad(load)
}

func main() {}
