package hostbridge

/*
#include <stdlib.h>

// The host answers a named call. It writes a NUL-terminated JSON result (or
// an error message) into out and returns 0 on success.
typedef int (*tour_host_fn)(const char* fn, const char* payload, char* out, size_t outsize);

int call_host(tour_host_fn f, const char* fn, const char* payload, char* out, size_t outsize);
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// ErrNoHost is returned by Transport calls made before the host registered
// its callback.
var ErrNoHost = errors.New("host callback not registered")

// callbackBufferSize bounds one host answer; a waypoint listing is the
// largest.
const callbackBufferSize = 1 << 16

var host struct {
	mu sync.Mutex
	fn C.tour_host_fn
}

// called by the host once, after loading the plugin
//
//export TourPluginRegisterHost
func TourPluginRegisterHost(fn C.tour_host_fn) {
	host.mu.Lock()
	defer host.mu.Unlock()
	host.fn = fn
}

// Transport is a hostproto.Transport over the registered host callback.
// Calls are serialized; the host callback is not reentrant.
type Transport struct{}

func (Transport) Call(ctx context.Context, fn string, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	host.mu.Lock()
	defer host.mu.Unlock()
	if host.fn == nil {
		return nil, ErrNoHost
	}

	cfn := C.CString(fn)
	defer C.free(unsafe.Pointer(cfn))
	cpayload := C.CString(string(payload))
	defer C.free(unsafe.Pointer(cpayload))
	out := (*C.char)(C.calloc(callbackBufferSize, 1))
	defer C.free(unsafe.Pointer(out))

	rc := C.call_host(host.fn, cfn, cpayload, out, callbackBufferSize)
	result := C.GoString(out)
	if rc != 0 {
		return nil, fmt.Errorf("host %s failed (%d): %s", fn, int(rc), result)
	}
	return []byte(result), nil
}
