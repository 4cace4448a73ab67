// Package stream provides small io.Writer decorators used while streaming
// file content through the hasher and executor.
package stream

import (
	"hash"
	"io"
)

// hashedWriter is the io.Writer implementation underlying NewHashedWriter.
type hashedWriter struct {
	writer io.Writer
	hasher hash.Hash
}

// NewHashedWriter creates a new io.Writer that attaches a hash function to an
// existing writer, ensuring that the hash processes all bytes that are
// successfully written to the associated writer.
func NewHashedWriter(writer io.Writer, hasher hash.Hash) io.Writer {
	return &hashedWriter{writer, hasher}
}

// Write implements io.Writer.Write.
func (w *hashedWriter) Write(data []byte) (int, error) {
	n, err := w.writer.Write(data)
	// This write can't fail, so all bytes successfully sent downstream are
	// also reflected in the digest.
	w.hasher.Write(data[:n])
	return n, err
}
