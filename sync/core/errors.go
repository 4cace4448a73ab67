package core

import "errors"

// ErrScanCancelled indicates that a scan was cancelled before completion.
var ErrScanCancelled = errors.New("scan cancelled")

// ErrCancelled indicates that a hashing or copying operation was cancelled
// at a chunk boundary before completion.
var ErrCancelled = errors.New("operation cancelled")

// ErrRootUnavailable indicates that a synchronization root could not be
// opened at all. It is always fatal and fails the whole run.
var ErrRootUnavailable = errors.New("synchronization root unavailable")

// ErrRootsOverlap indicates that the source and destination roots are
// identical or one is a prefix of the other.
var ErrRootsOverlap = errors.New("source and destination roots must be distinct and non-overlapping")

// ErrHashMismatch indicates that a verified copy's on-disk content did not
// match the digest recorded in the Plan, implying the source changed
// concurrently with the transfer.
var ErrHashMismatch = errors.New("content hash mismatch after copy")
