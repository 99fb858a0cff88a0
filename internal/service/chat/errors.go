package chat

import "errors"

var (
	ErrUnknownPersona     = errors.New("unknown persona")
	ErrBackendUnavailable = errors.New("chat backend unavailable")
	ErrExchangeInFlight   = errors.New("a reply is still pending")
	ErrFileNameRequired   = errors.New("file name is required")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionClosed      = errors.New("session closed")
	ErrNoExchange         = errors.New("no exchange in flight")
	ErrEmptyCatalog       = errors.New("persona catalog is empty")
)
