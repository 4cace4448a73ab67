// Package core implements the four components at the heart of janus: the
// parallel directory Scanner, the streaming content Hasher, the pure Planner
// that turns two inventories into a minimal mutation Plan, and the Executor
// that applies that plan to a destination tree.
//
// The package has no knowledge of remote endpoints, daemons, or watching —
// it operates entirely on two local directory trees and is safe to drive
// from a single command invocation (see cmd/janus) or from a long-lived
// embedding process that calls Scan/PlanSync/Apply directly.
package core
