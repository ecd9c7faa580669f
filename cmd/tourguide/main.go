// Command tourguide runs tours headlessly against a catalog.
//
//	tourguide simulate [-config dir] [-catalog file] [-ticks n] [-dt 100ms] [-era id] [-travel-every n]
//	tourguide validate catalog.yaml
//	tourguide version
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/timewalk/tourguide/internal/app"
	"github.com/timewalk/tourguide/internal/catalog"
	"github.com/timewalk/tourguide/internal/config"
	"github.com/timewalk/tourguide/internal/handlers"
	"github.com/timewalk/tourguide/internal/sim"
	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/engine"
)

var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "simulate":
		err = simulate(args[1:])
	case "validate":
		err = validate(args[1:])
	case "version":
		fmt.Printf("tourguide %s (%s)\n", Version, BuildDate)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tourguide simulate|validate|version")
}

func validate(args []string) error {
	if len(args) != 1 {
		return errors.New("validate takes one catalog path")
	}
	cat, err := catalog.Load(args[0])
	if err != nil {
		return err
	}
	for _, id := range cat.Ring() {
		cams, err := cat.ListWaypoints(id)
		if err != nil {
			return err
		}
		era, _ := cat.Era(id)
		fmt.Printf("%-20s %-30q %d cameras, %d zones\n", id, era.Title, len(cams), len(era.Zones))
	}
	return nil
}

func simulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	catalogPath := fs.String("catalog", "", "catalog file; defaults to catalog.path from config")
	ticks := fs.Int("ticks", 3000, "ticks to run; 0 runs until interrupted")
	dt := fs.Duration("dt", 100*time.Millisecond, "simulated time per tick")
	era := fs.String("era", "", "starting era; defaults to the first era in the catalog")
	travelEvery := fs.Int("travel-every", 0, "request time travel every n ticks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cat *catalog.Catalog
	if *catalogPath != "" {
		var err error
		if cat, err = catalog.Load(*catalogPath); err != nil {
			return err
		}
	}

	var world *sim.World
	a, err := app.New(app.Options{
		ConfigDir: *configDir,
		Name:      "tourguide",
		Catalog:   cat,
		Console:   os.Stderr,
		Host: func(cat *catalog.Catalog, _ *slog.Logger) (engine.Host, error) {
			w, err := sim.New(sim.Config{
				Catalog:  cat,
				Era:      core.SceneID(*era),
				Keywords: config.GetOutdoorKeywords(),
			})
			if err != nil {
				return engine.Host{}, err
			}
			world = w
			return w.Host(), nil
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Start(); err != nil {
		return err
	}

	for _, id := range a.Catalog.Ring() {
		if _, err := a.Dispatch(handlers.CmdEnable, string(id)); err != nil {
			return fmt.Errorf("enabling %s: %w", id, err)
		}
	}
	if _, err := a.Dispatch(handlers.CmdStart); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := sim.NewRunner(world, a.Driver(), *dt)
	start := time.Now()
	for i := 1; *ticks <= 0 || i <= *ticks; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := runner.Step(); err != nil {
			return err
		}
		if *travelEvery > 0 && i%*travelEvery == 0 {
			if _, err := a.Dispatch(handlers.CmdTimeTravel); err != nil {
				return err
			}
		}
	}

	status := a.Service.Status()
	if _, err := a.Dispatch(handlers.CmdEnd); err != nil {
		return err
	}

	out, err := json.MarshalIndent(struct {
		Status   any       `json:"status"`
		Position core.Vec3 `json:"position"`
		Era      string    `json:"era"`
		Warps    int       `json:"warps"`
		Elapsed  string    `json:"elapsed"`
	}{
		Status:   status,
		Position: world.Position(),
		Era:      string(world.Era()),
		Warps:    world.Warps(),
		Elapsed:  time.Since(start).Round(time.Millisecond).String(),
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
