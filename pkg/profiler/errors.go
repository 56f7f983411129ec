package profiler

import (
	"errors"

	"github.com/danpilch/mprof/pkg/report"
)

var (
	// ErrHookInstallationFailed wraps the source's error when Init cannot
	// install the hooks.
	ErrHookInstallationFailed = errors.New("hook installation failed")

	// ErrStaleCursor is logged when a cursor is used after Clear or Init.
	ErrStaleCursor = errors.New("stale cursor")
)

// IOError is returned by Dump when the report cannot be written.
type IOError = report.IOError
