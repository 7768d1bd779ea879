// Package transaction runs ordered configuration steps.
//
// A Transaction is an ordered list of Elements. Each Element has a title,
// an optional Prepare phase (a pre-condition check such as a reachability
// probe) and a Commit phase (the effect). Run executes the elements strictly
// in sequence:
//
//	for each element:
//	    observer.OnStart
//	    Prepare   -> on error: OnFailure, stop
//	    Commit    -> on error: OnFailure, stop
//	    observer.OnComplete
//	observer.OnFinish
//
// The first failing element halts the run. Elements committed before it
// are not undone: application is forward-only and a failed run can leave
// the host partially configured. The Result names the failing element, the
// phase and the cause.
//
// Transactions compose by concatenation, which preserves order and is
// associative. Pages rely on this to schedule element groups in a fixed
// priority order no matter which subset of keys changed.
package transaction
