// Package hostbridge is the C ABI the host engine loads: exported entry
// points for version, single-string and argument-array commands, plus a host
// callback that carries pkg/hostproto calls back into the engine.
package hostbridge

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"

import (
	"sync"

	"github.com/timewalk/tourguide/internal/dispatcher"
)

// configStruct is the central configuration used by this library
type configStruct struct {
	mu sync.RWMutex

	// version is returned when the host first queries the plugin
	version string

	dispatcher *dispatcher.Dispatcher

	// onLoad runs once, on the first command, so that setup is deferred until
	// the host has finished loading the library.
	onLoad   func()
	loadOnce sync.Once
	onUnload func()
}

// Config defines how calls to this plugin will be handled
var Config = configStruct{version: "No version set"}

// SetVersion sets the version string returned to the host
func SetVersion(version string) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.version = version
}

// SetDispatcher sets the event dispatcher for handling commands
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	Config.mu.RLock()
	defer Config.mu.RUnlock()
	return Config.dispatcher
}

// OnLoad registers fn to run before the first command is handled.
func OnLoad(fn func()) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.onLoad = fn
}

// OnUnload registers fn to run when the host shuts the plugin down.
func OnUnload(fn func()) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.onUnload = fn
}

func (c *configStruct) load() {
	c.mu.RLock()
	fn := c.onLoad
	c.mu.RUnlock()
	if fn != nil {
		c.loadOnce.Do(fn)
	}
}

func (c *configStruct) unload() {
	c.mu.Lock()
	fn := c.onUnload
	c.onUnload = nil
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
