package server

import "errors"

// Feed-specific errors
var (
	ErrServerClosed         = errors.New("server is closed")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrRaceRequired         = errors.New("race query parameter is required")
	ErrSlowClient           = errors.New("client send buffer full")
	ErrListenerFailed       = errors.New("failed to create listener")
)
