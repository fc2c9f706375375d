package server

import "errors"

// Server-specific errors
var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerFull           = errors.New("maximum clients reached")
	ErrSessionNotFound      = errors.New("session not found")
	ErrListenerFailed       = errors.New("failed to create listener")

	ErrTokenUnknown   = errors.New("admission token unknown")
	ErrTokenActive    = errors.New("admission token already in use")
	ErrTokenDuplicate = errors.New("admission token already registered")
	ErrTicketInvalid  = errors.New("admission ticket invalid")
)
