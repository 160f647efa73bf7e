// Package errkind defines the sentinel error kinds shared across the
// solving engine. Components return ordinary Go errors wrapping one of
// these sentinels (via fmt.Errorf with %w) rather than throwing typed
// exceptions, so callers classify failures with errors.Is.
package errkind

import "errors"

var (
	// ConfigInvalid is fatal and surfaces at construction time: BuildTree,
	// NewStore, or Train were given a configuration that fails Validate.
	ConfigInvalid = errors.New("config invalid")

	// TreeShapeError indicates the arena violates one of its structural
	// invariants (action_history length, raise cap, child ordering). It
	// should never occur outside a bug in the builder itself.
	TreeShapeError = errors.New("tree shape error")

	// InfoSetShapeMismatch is raised when a stored record's action count
	// disagrees with the tree node requesting it. Fatal in strict mode;
	// logged and skipped in tolerant mode.
	InfoSetShapeMismatch = errors.New("infoset shape mismatch")

	// RngStateError indicates a checkpoint's serialized RNG state could not
	// be restored into the configured generator.
	RngStateError = errors.New("rng state error")

	// CheckpointIoError is recoverable: a failed checkpoint write is logged
	// and solving continues, trying again at the next checkpoint interval.
	CheckpointIoError = errors.New("checkpoint io error")

	// ResourceExhausted signals the memory manager could not bring usage
	// back under the critical threshold even after escalating pruning.
	ResourceExhausted = errors.New("resource exhausted")

	// CancelRequested marks a clean shutdown requested by the caller
	// (context cancellation, signal, or explicit stop flag).
	CancelRequested = errors.New("cancel requested")
)
