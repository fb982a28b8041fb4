package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when material generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate learning materials")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrMissingArtifact is returned when a response does not carry an expected artifact kind
	ErrMissingArtifact = errors.New("response missing expected artifact")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrRecitation is returned when the LLM stops because output would recite training data
	ErrRecitation = errors.New("content blocked: recitation detected")

	// ErrOutputTruncated is returned when the LLM stops at its output token limit
	ErrOutputTruncated = errors.New("output token limit reached before response completed")

	// ErrEmptyTranscript is returned when there is no transcript text to generate from.
	// It classifies as a permanent invalid request.
	ErrEmptyTranscript = errors.New("invalid request: transcript is empty")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrNilGenerator is returned when a nil Generator is supplied
	ErrNilGenerator = errors.New("generator cannot be nil")
)
