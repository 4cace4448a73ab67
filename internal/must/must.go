// Package must provides best-effort wrappers around cleanup operations whose
// failure should be logged rather than propagated — e.g. removing a
// temporary file after a failed copy, or closing a file we're about to
// discard. These are metadata or cleanup operations that must not fail the
// action they're cleaning up after.
package must

import (
	"io"
	"os"

	"github.com/janus-sync/janus/internal/logging"
)

// Close closes c, logging a warning on failure.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %s", err.Error())
	}
}

// OSRemove removes the named file, logging a warning on failure.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		logger.Warnf("unable to remove '%s': %s", name, err.Error())
	}
}

// Chmod sets the permissions on the named file, logging a warning on
// failure. Mode changes are best-effort.
func Chmod(name string, mode os.FileMode, logger *logging.Logger) {
	if err := os.Chmod(name, mode); err != nil {
		logger.Warnf("unable to change permissions on '%s': %s", name, err.Error())
	}
}

// Chtimes sets the access and modification times on the named file, logging
// a warning on failure. Mtime changes are best-effort.
func Chtimes(name string, atime, mtime int64, logger *logging.Logger) {
	t := toTime(mtime)
	if err := os.Chtimes(name, toTime(atime), t); err != nil {
		logger.Warnf("unable to change modification time on '%s': %s", name, err.Error())
	}
}
