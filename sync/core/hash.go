package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/janus-sync/janus/internal/contextutil"
)

// chunkSize is the streaming read/write buffer size used by the hasher and
// executor. Memory usage of a hash or copy operation is O(chunkSize)
// regardless of file size.
const chunkSize = 64 * 1024

// HashAlgorithm selects the digest function used for content addressing.
// Both supported algorithms produce 256-bit digests: BLAKE2b
// is the fast default, SHA-256 the slower-but-ubiquitous alternative for
// environments that prefer a more conservative, widely vetted primitive.
// The algorithm is chosen at run time (see ParseHashAlgorithm).
type HashAlgorithm uint8

const (
	// HashAlgorithmBLAKE2b256 is the default algorithm: a 256-bit,
	// cryptographically collision-resistant, streamable digest that is
	// substantially faster than SHA-256 on most hardware.
	HashAlgorithmBLAKE2b256 HashAlgorithm = iota
	// HashAlgorithmSHA256 is the slower-but-widely-compatible 256-bit
	// alternative.
	HashAlgorithmSHA256
)

// String provides a human-readable name for a HashAlgorithm.
func (a HashAlgorithm) String() string {
	switch a {
	case HashAlgorithmBLAKE2b256:
		return "blake2b-256"
	case HashAlgorithmSHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// ParseHashAlgorithm converts a string-based representation of a hashing
// algorithm, as accepted by the --hash CLI flag, to a HashAlgorithm.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch name {
	case "", "blake2b", "blake2b-256":
		return HashAlgorithmBLAKE2b256, nil
	case "sha256":
		return HashAlgorithmSHA256, nil
	default:
		return 0, fmt.Errorf("unknown hashing algorithm: %s", name)
	}
}

// factory returns a constructor for the algorithm's hash.Hash
// implementation. It panics on an invalid value, which would indicate a
// programmer error (an unvalidated HashAlgorithm reaching this point).
func (a HashAlgorithm) factory() func() hash.Hash {
	switch a {
	case HashAlgorithmBLAKE2b256:
		return func() hash.Hash {
			h, err := blake2b.New256(nil)
			if err != nil {
				// Only possible if a key were supplied, which we never do.
				panic("blake2b-256 construction failed: " + err.Error())
			}
			return h
		}
	case HashAlgorithmSHA256:
		return sha256.New
	default:
		panic("unknown or default hashing algorithm")
	}
}

// Hasher streams file content in fixed-size chunks to produce a Digest. A
// Hasher is safe for concurrent use by multiple goroutines hashing
// different files; each call to HashFile uses its own hash.Hash and buffer.
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a Hasher using the specified algorithm.
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// EmptyDigest returns the well-defined digest of a zero-byte input. All
// zero-byte files share this identity, which is deliberate for rename
// detection.
func (h *Hasher) EmptyDigest() Digest {
	hasher := h.algorithm.factory()()
	return hasher.Sum(nil)
}

// HashFile streams the file at path in chunkSize blocks and returns its
// digest. Memory usage is O(chunkSize) regardless of file size. The context
// is checked at chunk boundaries so a long hash can be cancelled promptly.
func (h *Hasher) HashFile(ctx context.Context, path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file for hashing: %w", err)
	}
	defer file.Close()
	return h.HashReader(ctx, file)
}

// HashReader streams r in chunkSize blocks and returns its digest, checking
// ctx for cancellation between chunks.
func (h *Hasher) HashReader(ctx context.Context, r io.Reader) (Digest, error) {
	hasher := h.algorithm.factory()()
	buffer := make([]byte, chunkSize)
	for {
		if contextutil.IsCancelled(ctx) {
			return nil, ErrCancelled
		}
		n, readErr := r.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
		}
		if readErr == io.EOF {
			break
		} else if readErr != nil {
			return nil, fmt.Errorf("unable to read content for hashing: %w", readErr)
		}
	}
	return hasher.Sum(nil), nil
}

// hexString renders a digest as lowercase hexadecimal.
func hexString(d []byte) string {
	return hex.EncodeToString(d)
}
