package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrLLMNotConfigured      = errors.New("no LLM endpoint configured")
	ErrServiceNotConfigured  = errors.New("service not configured")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrToolNotFound          = errors.New("unknown tool")
	ErrToolCallLimit         = errors.New("tool call limit reached")
)
