package must

import "time"

// toTime converts a nanosecond-since-epoch timestamp, as stored on
// core.FileMeta, into a time.Time suitable for os.Chtimes.
func toTime(nanoseconds int64) time.Time {
	return time.Unix(0, nanoseconds)
}
