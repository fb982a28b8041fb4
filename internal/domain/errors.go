package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidArtifactKind is returned when an artifact kind name is not recognised.
	ErrInvalidArtifactKind = errors.New("invalid artifact kind")

	// ErrInvalidProcessingStatus is returned when a processing status is not valid.
	ErrInvalidProcessingStatus = errors.New("invalid processing status")

	// ErrInvalidMaterialsStatus is returned when a materials status is not valid.
	ErrInvalidMaterialsStatus = errors.New("invalid materials status")
)
