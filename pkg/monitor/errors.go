package monitor

import "errors"

// Common errors returned by the monitor.
var (
	// ErrMonitorRunning is returned when Start is called on a running monitor.
	ErrMonitorRunning = errors.New("monitor already running")

	// ErrMonitorNotRunning is returned when Stop is called on a stopped monitor.
	ErrMonitorNotRunning = errors.New("monitor not running")

	// ErrMonitorClosed is returned when using a closed monitor.
	ErrMonitorClosed = errors.New("monitor is closed")
)
