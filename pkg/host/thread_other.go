//go:build !linux

package host

import "github.com/danpilch/mprof/pkg/ident"

// OSThreadID falls back to the goroutine id where the kernel thread id is not
// exposed.
func OSThreadID() ident.Thread {
	return GoroutineID()
}
