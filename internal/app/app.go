// Package app wires the tour guide together: config, logging, metrics,
// journal storage, the catalog, the tour machine and its command surface.
// The plugin and the simulator CLI differ only in the engine host they pass.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/timewalk/tourguide/internal/api"
	"github.com/timewalk/tourguide/internal/catalog"
	"github.com/timewalk/tourguide/internal/config"
	"github.com/timewalk/tourguide/internal/dispatcher"
	"github.com/timewalk/tourguide/internal/handlers"
	"github.com/timewalk/tourguide/internal/influx"
	"github.com/timewalk/tourguide/internal/logging"
	"github.com/timewalk/tourguide/internal/monitor"
	"github.com/timewalk/tourguide/internal/otel"
	"github.com/timewalk/tourguide/internal/parser"
	"github.com/timewalk/tourguide/internal/storage"
	"github.com/timewalk/tourguide/internal/tour"
	"github.com/timewalk/tourguide/pkg/engine"
)

const uploadTimeout = 2 * time.Minute

// HostFunc builds the engine collaborators for a loaded catalog.
type HostFunc func(cat *catalog.Catalog, logger *slog.Logger) (engine.Host, error)

// Options configures New.
type Options struct {
	// ConfigDir holds tourguide.cfg.json; relative config paths resolve
	// against it.
	ConfigDir string
	// Name prefixes the log file.
	Name string
	// Catalog skips loading catalog.path when set.
	Catalog *catalog.Catalog
	Host    HostFunc
	// TickOptions configure the :TOUR:TICK: handler.
	TickOptions []dispatcher.Option
	// Console receives log output when no log file can be opened. Defaults
	// to stdout.
	Console io.Writer
}

// App is a running tour guide.
type App struct {
	Logs       *logging.SlogManager
	Logger     *slog.Logger
	Catalog    *catalog.Catalog
	Machine    *tour.Machine
	Service    *handlers.Service
	Dispatcher *dispatcher.Dispatcher
	Monitor    *monitor.Service
	Journal    *storage.Fanout
	Metrics    *otel.Provider

	api     *api.Client
	closers []io.Closer
	uploads sync.WaitGroup
	once    sync.Once
}

// New builds every component. On error, whatever was opened is closed.
func New(opts Options) (_ *App, err error) {
	if opts.Host == nil {
		return nil, errors.New("app: a host is required")
	}
	if opts.Name == "" {
		opts.Name = "tourguide"
	}

	a := &App{Logs: logging.NewSlogManager()}
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	// Until the log file is open, log to the console.
	a.Logs.Setup(opts.Console, "info")
	a.Logger = a.Logs.Logger()

	if err := config.Load(opts.ConfigDir); err != nil {
		a.Logger.Warn("Failed to load config, using defaults", "error", err)
	}

	logFile, trace := a.setupLogging(opts)

	a.Metrics = otel.New(otel.Config{
		Enabled:     config.GetOTelConfig().Enabled,
		ServiceName: config.GetOTelConfig().ServiceName,
	})
	a.Metrics.Install()

	a.Journal = a.setupJournal(opts.ConfigDir, logFile)

	if a.Catalog = opts.Catalog; a.Catalog == nil {
		path := resolve(opts.ConfigDir, config.GetString("catalog.path"))
		if a.Catalog, err = catalog.Load(path); err != nil {
			return nil, err
		}
	}

	params, err := config.GetTourParams()
	if err != nil {
		return nil, err
	}
	host, err := opts.Host(a.Catalog, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("building engine host: %w", err)
	}

	a.Machine, err = tour.New(host, tour.Options{
		Params:   params,
		Eras:     a.Catalog.Ring(),
		Origin:   a.Catalog.Origin(),
		Logger:   a.Logger,
		Trace:    trace,
		Recorder: a.Journal,
	})
	if err != nil {
		return nil, err
	}

	a.Dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.Logger))
	if err != nil {
		return nil, err
	}
	a.Service = handlers.NewService(handlers.Dependencies{
		Machine: a.Machine,
		Parser:  parser.NewParser(a.Logger),
		Logger:  a.Logger,
		OnEnd:   a.uploadJournal,
	})
	a.Service.Register(a.Dispatcher, opts.TickOptions...)

	a.Monitor = monitor.NewService(monitor.Dependencies{
		Logger:     a.Logger,
		Status:     a.Service.Status,
		Metrics:    a.Metrics,
		StatusPath: filepath.Join(resolve(opts.ConfigDir, config.GetString("logsDir")), "status.json"),
	})

	if apiCfg := config.GetAPIConfig(); apiCfg.ServerURL != "" {
		a.api = api.New(apiCfg.ServerURL, apiCfg.APIKey)
	}

	a.Logger.Info("Tour guide ready",
		"eras", a.Catalog.Ring(),
		"order", params.Order.String(),
		"commands", a.Dispatcher.Commands())
	return a, nil
}

// setupLogging opens the session log file and rebuilds the logger with it
// and any Graylog sink. It returns the file (nil on failure) and the trace
// logger.
func (a *App) setupLogging(opts Options) (io.Writer, *zerolog.Logger) {
	level := config.GetString("logLevel")
	logsDir := resolve(opts.ConfigDir, config.GetString("logsDir"))

	var file io.Writer = opts.Console
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		a.Logger.Error("Failed to create logs directory", "path", logsDir, "error", err)
	} else {
		path := logging.LogFilePath(logsDir, opts.Name, time.Now())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			a.Logger.Error("Failed to create/open log file", "path", path, "error", err)
		} else {
			a.closers = append(a.closers, f)
			file = f
			a.Logger.Info("Begin logging in logs directory", "path", path)
		}
	}

	var sinks []logging.Sink
	if gl := config.GetGraylogConfig(); gl.Enabled {
		sink, w, err := logging.GraylogSink(gl.Address)
		if err != nil {
			a.Logger.Warn("Graylog sink unavailable", "error", err)
		} else {
			sinks = append(sinks, sink)
			a.closers = append(a.closers, w)
		}
	}

	a.Logs.SetContextProvider(func() (logging.TourContext, bool) {
		if a.Service == nil {
			return logging.TourContext{}, false
		}
		st := a.Service.LastStatus()
		if st.State == tour.StateInactive {
			return logging.TourContext{}, false
		}
		return logging.TourContext{
			Scene:    string(st.Scene),
			State:    st.State.String(),
			Waypoint: st.WaypointName,
			Session:  st.SessionID,
		}, true
	})
	a.Logs.Setup(file, level, sinks...)
	a.Logger = a.Logs.Logger()

	var trace *zerolog.Logger
	if tc := config.GetTraceConfig(); tc.Enabled && file != nil {
		t := logging.NewTraceLogger(file, tc.Burst, tc.Period, tc.SampleN)
		trace = &t
	}
	return file, trace
}

// setupJournal builds the configured journal backend plus InfluxDB when
// enabled. Backends that fail to start are logged and left out.
func (a *App) setupJournal(configDir string, logFile io.Writer) *storage.Fanout {
	dbLog := zerolog.Nop()
	if logFile != nil {
		dbLog = zerolog.New(logFile).With().Timestamp().Str("component", "journal").Logger()
	}

	cfg := config.GetStorageConfig()
	cfg.Memory.OutputDir = resolve(configDir, cfg.Memory.OutputDir)
	if cfg.SQL.Path != "" {
		cfg.SQL.Path = resolve(configDir, cfg.SQL.Path)
	}

	var backends []storage.Backend
	primary, err := storage.NewBackend(cfg, a.Logger, dbLog)
	if err != nil {
		a.Logger.Error("Journal backend unavailable", "type", cfg.Type, "error", err)
	} else if primary != nil {
		backends = append(backends, primary)
	}

	if ic := config.GetInfluxConfig(); ic.Enabled {
		ic.BackupPath = resolve(configDir, ic.BackupPath)
		backends = append(backends, influx.NewManager(ic, dbLog))
	}

	var started []storage.Backend
	for _, b := range backends {
		if err := b.Init(); err != nil {
			a.Logger.Error("Journal backend failed to start", "backend", fmt.Sprintf("%T", b), "error", err)
			continue
		}
		started = append(started, b)
	}
	a.Logger.Info("Journal initialized", "type", cfg.Type, "backends", len(started))
	return storage.NewFanout(started...)
}

// Start launches background services.
func (a *App) Start() error {
	if a.api != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.api.Healthcheck(ctx); err != nil {
				a.Logger.Info("Tour archive is offline", "error", err)
				return
			}
			a.Logger.Info("Tour archive is online")
		}()
	}
	return a.Monitor.Start()
}

// Dispatch runs one host command.
func (a *App) Dispatch(cmd string, args ...string) (any, error) {
	return a.Dispatcher.Dispatch(dispatcher.Event{Command: cmd, Args: args})
}

// Driver returns a sim driver that goes through the command surface.
func (a *App) Driver() handlers.CommandDriver {
	return handlers.CommandDriver{Dispatcher: a.Dispatcher}
}

// uploadJournal sends every exported journal file to the archive. It runs
// after a tour ends.
func (a *App) uploadJournal() {
	if a.api == nil {
		return
	}
	for _, u := range a.Journal.Uploadables() {
		path := u.GetExportedFilePath()
		if path == "" {
			continue
		}
		meta := u.GetExportMetadata()
		a.uploads.Add(1)
		go func() {
			defer a.uploads.Done()
			ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
			defer cancel()
			if err := a.api.Upload(ctx, path, meta); err != nil {
				a.Logger.Error("Journal upload failed", "path", path, "error", err)
				return
			}
			a.Logger.Info("Journal uploaded", "path", path, "session", meta.SessionID)
		}()
	}
}

// Close ends a running tour, drains queued commands and closes everything.
func (a *App) Close() error {
	var err error
	a.once.Do(func() {
		if a.Monitor != nil {
			a.Monitor.Stop()
		}
		if a.Dispatcher != nil {
			a.Dispatcher.Close()
		}
		if a.Service != nil {
			_, _ = a.Service.HandleEnd(dispatcher.Event{Command: handlers.CmdEnd})
		}
		a.uploads.Wait()
		err = a.closeAll()
	})
	return err
}

func (a *App) closeAll() error {
	var errs []error
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	if a.Metrics != nil {
		errs = append(errs, a.Metrics.Shutdown(context.Background()))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// resolve makes a relative path relative to dir.
func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
