package registry

import "errors"

// Sentinel errors for consistent error handling.
var (
	ErrNotStarted      = errors.New("registry not started")
	ErrAlreadyStarted  = errors.New("registry already started")
	ErrDuplicateTool   = errors.New("duplicate tool name")
	ErrToolNotFound    = errors.New("tool not found")
	ErrBackendNotFound = errors.New("backend not found")
	ErrHandlerNotFound = errors.New("handler not found")
	ErrExecutionFailed = errors.New("tool execution failed")
	ErrInvalidRequest  = errors.New("invalid request")
)
