// Package handlers binds the :TOUR: host commands to the tour machine.
package handlers

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timewalk/tourguide/internal/dispatcher"
	"github.com/timewalk/tourguide/internal/parser"
	"github.com/timewalk/tourguide/internal/tour"
	"github.com/timewalk/tourguide/pkg/core"
)

// Host commands.
const (
	CmdEnable         = ":TOUR:ENABLE:"
	CmdDisable        = ":TOUR:DISABLE:"
	CmdStart          = ":TOUR:START:"
	CmdEnd            = ":TOUR:END:"
	CmdTick           = ":TOUR:TICK:"
	CmdTimeTravel     = ":TOUR:TIMETRAVEL:"
	CmdTransitionDone = ":TOUR:TRANSITION:DONE:"
	CmdStatus         = ":TOUR:STATUS:"
)

// Ok is the result of commands that have nothing to report.
const Ok = "ok"

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Machine *tour.Machine
	Parser  *parser.Parser
	Logger  *slog.Logger
	// OnEnd runs after a tour has ended, outside the tour lock.
	OnEnd func()
}

// Service serializes host commands onto the tour machine.
type Service struct {
	deps   Dependencies
	logger *slog.Logger
	mu     sync.Mutex
	// last is republished after every locked command for lock-free readers.
	last atomic.Pointer[tour.Status]
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(logger)
	}
	s := &Service{deps: deps, logger: logger.With("component", "handlers")}
	s.last.Store(&tour.Status{})
	return s
}

// Register binds every tour command. tickOpts configure the tick handler,
// which the plugin buffers so the host's frame never waits on a tick.
func (s *Service) Register(d *dispatcher.Dispatcher, tickOpts ...dispatcher.Option) {
	d.Register(CmdEnable, s.HandleEnable, dispatcher.Logged())
	d.Register(CmdDisable, s.HandleDisable, dispatcher.Logged())
	d.Register(CmdStart, s.HandleStart, dispatcher.Logged())
	d.Register(CmdEnd, s.HandleEnd, dispatcher.Logged())
	d.Register(CmdTick, s.HandleTick, tickOpts...)
	d.Register(CmdTimeTravel, s.HandleTimeTravel, dispatcher.Logged())
	d.Register(CmdTransitionDone, s.HandleTransitionDone, dispatcher.Logged())
	d.Register(CmdStatus, s.HandleStatus)
}

// Status returns a snapshot of the machine. Safe for concurrent use.
func (s *Service) Status() tour.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deps.Machine.Status()
}

// LastStatus returns the snapshot taken after the last command without
// locking, so it can be called from inside a command (e.g. while logging).
func (s *Service) LastStatus() tour.Status {
	return *s.last.Load()
}

// publish must be called with mu held.
func (s *Service) publish() {
	st := s.deps.Machine.Status()
	s.last.Store(&st)
}

// HandleEnable creates or resets a scene's session.
func (s *Service) HandleEnable(e dispatcher.Event) (any, error) {
	scene, err := s.deps.Parser.ParseScene(e.Args)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.publish()
	if err := s.deps.Machine.Enable(scene); err != nil {
		return nil, err
	}
	return Ok, nil
}

// HandleDisable marks a scene disabled.
func (s *Service) HandleDisable(e dispatcher.Event) (any, error) {
	scene, err := s.deps.Parser.ParseScene(e.Args)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.publish()
	if err := s.deps.Machine.Disable(scene); err != nil {
		return nil, err
	}
	return Ok, nil
}

// HandleStart starts the tour.
func (s *Service) HandleStart(dispatcher.Event) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.publish()
	s.deps.Machine.Start()
	return s.deps.Machine.State().String(), nil
}

// HandleEnd ends the tour and then runs the OnEnd hook.
func (s *Service) HandleEnd(dispatcher.Event) (any, error) {
	s.mu.Lock()
	wasRunning := s.deps.Machine.Mode().IsRunning()
	s.deps.Machine.End()
	s.publish()
	s.mu.Unlock()

	if wasRunning && s.deps.OnEnd != nil {
		s.deps.OnEnd()
	}
	return Ok, nil
}

// HandleTick runs one simulation tick.
func (s *Service) HandleTick(e dispatcher.Event) (any, error) {
	tick, err := s.deps.Parser.ParseTick(e.Args)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.publish()
	if err := s.deps.Machine.Tick(tick.Scene, tick.Telemetry, tick.DT); err != nil {
		return nil, err
	}
	return nil, nil
}

// HandleTimeTravel queues an era transition for the next tick.
func (s *Service) HandleTimeTravel(e dispatcher.Event) (any, error) {
	era, brief, err := s.deps.Parser.ParseTimeTravel(e.Args)
	if err != nil {
		return nil, err
	}
	s.deps.Machine.Enqueue(tour.TimeTravel{To: era, Brief: brief})
	return Ok, nil
}

// HandleTransitionDone reports the host finished a transition.
func (s *Service) HandleTransitionDone(e dispatcher.Event) (any, error) {
	era, err := s.deps.Parser.ParseScene(e.Args)
	if err != nil {
		return nil, err
	}
	s.deps.Machine.Enqueue(tour.TransitionDone{Era: era})
	return Ok, nil
}

// HandleStatus returns the tour state name.
func (s *Service) HandleStatus(dispatcher.Event) (any, error) {
	return s.Status().State.String(), nil
}

// CommandDriver drives the tour through the dispatcher, the same path host
// calls take. It satisfies sim.Driver.
type CommandDriver struct {
	Dispatcher *dispatcher.Dispatcher
}

func (d CommandDriver) call(cmd string, args ...string) error {
	_, err := d.Dispatcher.Dispatch(dispatcher.Event{Command: cmd, Args: args})
	return err
}

// Tick encodes telemetry the way the host does and dispatches :TOUR:TICK:.
func (d CommandDriver) Tick(scene core.SceneID, tel core.Telemetry, dt time.Duration) error {
	payload, err := parser.EncodeTelemetry(tel)
	if err != nil {
		return err
	}
	return d.call(CmdTick, string(scene), strconv.FormatFloat(dt.Seconds(), 'f', -1, 64), payload)
}

// TransitionDone dispatches :TOUR:TRANSITION:DONE:.
func (d CommandDriver) TransitionDone(era core.SceneID) error {
	return d.call(CmdTransitionDone, string(era))
}
