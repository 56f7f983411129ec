package host

import (
	"golang.org/x/sys/unix"

	"github.com/danpilch/mprof/pkg/ident"
)

// OSThreadID returns the kernel thread id of the caller. Goroutines migrate
// between threads, so callers should hold runtime.LockOSThread while a frame
// is open.
func OSThreadID() ident.Thread {
	return ident.Thread(unix.Gettid())
}
