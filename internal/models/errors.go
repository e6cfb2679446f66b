package models

import "errors"

// Error kinds surfaced by tunnel operations. Commands and controllers map
// these to exit codes / HTTP statuses; everything else is wrapped context.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidTTL      = errors.New("invalid ttl")
	ErrNotFound        = errors.New("not found")
	ErrTunnelLimit     = errors.New("tunnel limit exceeded")
	ErrSessionStart    = errors.New("session failed to start")
	ErrStartInProgress = errors.New("start already in progress")
	ErrProcessExited   = errors.New("tunnel process exited during startup")
)
