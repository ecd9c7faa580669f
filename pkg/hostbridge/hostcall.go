package hostbridge

// Files with //export may only declare C functions, so the trampoline that
// invokes the host's function pointer is defined here.

/*
#include <stddef.h>

typedef int (*tour_host_fn)(const char* fn, const char* payload, char* out, size_t outsize);

int call_host(tour_host_fn f, const char* fn, const char* payload, char* out, size_t outsize) {
	return f(fn, payload, out, outsize);
}
*/
import "C"
