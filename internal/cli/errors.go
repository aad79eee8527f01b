package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrEmbeddingURLMissing indicates no embedding service URL is configured.
	ErrEmbeddingURLMissing = errors.New("embedding service URL not set")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidThreshold indicates a threshold flag outside its legal range.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrUnsupportedModel indicates an unknown transcription model name.
	ErrUnsupportedModel = errors.New("unsupported transcription model")
)
