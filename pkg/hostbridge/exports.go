package hostbridge

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"time"
	"unsafe"

	"github.com/timewalk/tourguide/internal/dispatcher"
	"github.com/timewalk/tourguide/internal/util"
)

// called by the host to get the version of the plugin
//
//export TourPluginVersion
func TourPluginVersion(output *C.char, outputsize C.size_t) {
	Config.mu.RLock()
	v := Config.version
	Config.mu.RUnlock()
	reply(v, output, outputsize)
}

// called by the host with a single "CMD|arg|arg" string
//
//export TourPlugin
func TourPlugin(output *C.char, outputsize C.size_t, input *C.char) {
	if C.GoString(input) == ":TIMESTAMP:" {
		reply(getTimestamp(), output, outputsize)
		return
	}
	cmd, args := util.SplitCommand(C.GoString(input))
	reply(dispatch(cmd, args), output, outputsize)
}

// called by the host with a command and an argument array
//
//export TourPluginArgs
func TourPluginArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	reply(dispatch(C.GoString(input), parseArgsFromC(argv, argc)), output, outputsize)
}

// called by the host before it unloads the plugin
//
//export TourPluginShutdown
func TourPluginShutdown() {
	Config.unload()
}

func dispatch(cmd string, args []string) string {
	Config.load()
	d := GetDispatcher()
	if d == nil || !d.HasHandler(cmd) {
		return formatDispatchResponse(cmd, nil, fmt.Errorf("%w: %s", dispatcher.ErrUnknownCommand, cmd))
	}
	result, err := d.Dispatch(dispatcher.Event{Command: cmd, Args: args, Timestamp: time.Now()})
	return formatDispatchResponse(cmd, result, err)
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	if argc <= 0 {
		return nil
	}
	ptrs := unsafe.Slice(argv, int(argc))
	data := make([]string, len(ptrs))
	for i, p := range ptrs {
		data[i] = C.GoString(p)
	}
	return data
}

// formatDispatchResponse renders a result as a JSON array the host can
// parse: ["ok", cmd], ["ok", cmd, result] or ["error", cmd, message].
func formatDispatchResponse(command string, result any, err error) string {
	resp := []any{"ok", command}
	switch {
	case err != nil:
		resp = []any{"error", command, err.Error()}
	case result != nil:
		resp = append(resp, result)
	}
	out, mErr := json.Marshal(resp)
	if mErr != nil {
		out, _ = json.Marshal([]any{"error", command, "unencodable result: " + mErr.Error()})
	}
	return string(out)
}

// reply copies response into the host's output buffer, truncating to fit.
func reply(response string, output *C.char, outputsize C.size_t) {
	if outputsize == 0 {
		return
	}
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	size := C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
	// a truncated copy still needs its terminator
	*(*C.char)(unsafe.Add(unsafe.Pointer(output), outputsize-1)) = 0
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
