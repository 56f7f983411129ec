package host

import (
	"bytes"
	"runtime"
	"strconv"

	"github.com/danpilch/mprof/pkg/ident"
)

var goroutinePrefix = []byte("goroutine ")

// GoroutineID returns the id of the calling goroutine, parsed from the header
// of its stack trace. It returns 0 if the header cannot be parsed.
func GoroutineID() ident.Thread {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return ident.Thread(n)
}
