package core

// ProgressSink receives the event stream emitted while a Scan or Plan is
// executed. Every method must return quickly and must not block on I/O;
// implementations that need to do slow work (writing to a terminal, a log
// file) should buffer or hand off to another goroutine. A nil ProgressSink
// is never passed to callbacks — callers that don't want progress reporting
// use NoopProgressSink.
type ProgressSink interface {
	// ScanStarted reports that a Scan of the given root has begun.
	ScanStarted(root string)
	// ScanFinished reports that a Scan has completed, with the final entry
	// and problem counts.
	ScanFinished(entries, problems int)
	// PlanReady reports the summary of a freshly computed Plan.
	PlanReady(summary PlanSummary)
	// ActionStarted reports that execution of a single PlanAction has begun.
	ActionStarted(index int, action PlanAction)
	// ActionBytes reports incremental byte progress within a Copy or
	// Overwrite action. delta is the number of additional bytes written
	// since the last ActionBytes call for the same index.
	ActionBytes(index int, delta uint64)
	// ActionDone reports that a PlanAction finished, successfully or not.
	// err is nil on success.
	ActionDone(index int, action PlanAction, err error)
}

// NoopProgressSink discards every event. It is the zero value of
// noopProgressSink and is safe to use concurrently.
var NoopProgressSink ProgressSink = noopProgressSink{}

type noopProgressSink struct{}

func (noopProgressSink) ScanStarted(string)                 {}
func (noopProgressSink) ScanFinished(int, int)              {}
func (noopProgressSink) PlanReady(PlanSummary)               {}
func (noopProgressSink) ActionStarted(int, PlanAction)       {}
func (noopProgressSink) ActionBytes(int, uint64)             {}
func (noopProgressSink) ActionDone(int, PlanAction, error)   {}
