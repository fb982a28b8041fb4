package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrMissingTemplate is returned when a prompt template for a requested
	// artifact kind cannot be found.
	ErrMissingTemplate = errors.New("prompt template not found")

	// ErrMissingSchema is returned when no JSON schema exists for an artifact kind.
	ErrMissingSchema = errors.New("response schema not found")

	// ErrNilClient is returned when a nil content client is supplied.
	ErrNilClient = errors.New("content client cannot be nil")
)
