package decoder

import (
	"errors"
	"fmt"
)

// Step and Reindex fail with these sentinels on caller protocol violations.
// None of them are retried here: a shape mismatch is a bug in the decoding
// loop, not a transient condition.
var (
	// ErrShapeMismatch reports a batch or sequence dimension disagreement
	// between the supplied tokens and a non-empty cache.
	ErrShapeMismatch = errors.New("decoder: shape mismatch between tokens and cache")

	// ErrMissingFeatures reports a cold-cache step without encoder features.
	ErrMissingFeatures = errors.New("decoder: encoder features required on first step")

	// ErrIndexOutOfRange reports a reindex selection outside the cache batch.
	ErrIndexOutOfRange = errors.New("decoder: reindex selection out of range")
)

// EngineError wraps an opaque failure from the downstream inference engine.
// It is not recoverable locally; the decoding loop must abandon the run.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("decoder: engine execution failed: %v", e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
