package core

import "errors"

// Sentinel errors shared across the core. Callers match them with errors.Is;
// wrapped variants carry the specific cause.
var (
	// ErrValidation marks a malformed request (e.g. ingestion with neither
	// URL nor text, or both).
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a task/document/session lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrContentProcessing marks extraction or chunking failure.
	ErrContentProcessing = errors.New("content processing failed")

	// ErrEmbeddingGeneration marks embedding failure after the deterministic
	// fallback was also unusable (misconfigured dimension, empty input).
	ErrEmbeddingGeneration = errors.New("embedding generation failed")

	// ErrDimensionMismatch marks a provider vector whose length differs from
	// the configured corpus dimension. Mixed dimensions break similarity
	// comparison and are rejected before storage.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrTaskNotActive marks a cancel request against a task that already
	// reached a terminal state.
	ErrTaskNotActive = errors.New("task not active")

	// ErrDuplicateSubmission marks an ingest request for a URL this user has
	// already submitted. Handlers turn it into a short-circuit response
	// carrying the existing identifiers, not a failure.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)
