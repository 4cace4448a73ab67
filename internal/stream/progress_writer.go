package stream

import (
	"io"
)

// ProgressFunc is invoked with the number of bytes written by the most recent
// Write call on a ProgressWriter.
type ProgressFunc func(delta uint64)

// progressWriter is the io.Writer implementation underlying NewProgressWriter.
type progressWriter struct {
	writer   io.Writer
	callback ProgressFunc
}

// NewProgressWriter creates a new io.Writer that reports the number of bytes
// written to an existing writer after each successful chunk, allowing
// streaming copies to surface ActionBytes-style progress without
// materializing the full file in memory.
func NewProgressWriter(writer io.Writer, callback ProgressFunc) io.Writer {
	return &progressWriter{writer, callback}
}

// Write implements io.Writer.Write.
func (w *progressWriter) Write(data []byte) (int, error) {
	n, err := w.writer.Write(data)
	if n > 0 && w.callback != nil {
		w.callback(uint64(n))
	}
	return n, err
}
