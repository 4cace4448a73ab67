// Package config gathers the run-wide options that configure a single
// janus invocation, independent of how they were collected (CLI flags here;
// a config file or RPC call in a larger system would produce the same
// struct). It mirrors, in simplified form, the role mutagen's
// configuration/synchronization package plays for session configuration.
package config

import (
	"fmt"

	"github.com/janus-sync/janus/sync/core"
)

// Options bundles every user-facing knob for a single synchronization run.
type Options struct {
	// Threads sizes the Scanner's and Executor's bounded worker pools. Zero
	// selects runtime.NumCPU() in each component.
	Threads int
	// Delete causes destination-only content to be removed so that
	// destination becomes an exact mirror of source.
	Delete bool
	// PreserveMode propagates source permission bits to unchanged
	// destination files.
	PreserveMode bool
	// PreserveMtime propagates source modification times to unchanged
	// destination files.
	PreserveMtime bool
	// Verify re-hashes transferred content before it is published.
	Verify bool
	// HashAlgorithm selects the content-addressing digest function.
	HashAlgorithm core.HashAlgorithm
}

// Default returns the recommended Options for an interactive run: a fast
// default hashing algorithm, additive (non-deleting) sync, and no metadata
// preservation.
func Default() Options {
	return Options{
		HashAlgorithm: core.HashAlgorithmBLAKE2b256,
	}
}

// EnsureValid checks that the Options are internally consistent, returning
// a descriptive error for the first problem found.
func (o Options) EnsureValid() error {
	if o.Threads < 0 {
		return fmt.Errorf("threads must be non-negative, got %d", o.Threads)
	}
	return nil
}
