// Package acceptance runs one processing pass: rank, filter, pick a slot,
// commit, notify. Jobs are handled strictly one at a time in priority order.
//
// Per-job stage graph within a pass:
//
//	DISCOVERED ──► SORTED ──► PASSED ──► SLOT_SELECTED ──► COMMITTED ──► NOTIFIED
//	                 │          │             │                │
//	                 │          │             └──► COMMIT_FAILED └──► NOTIFY_SKIPPED
//	                 │          ├──► NO_SLOT
//	                 │          └──► REJECTED (permission denied)
//	                 ├──► REJECTED
//	                 └──► ALREADY_HANDLED
//
// REJECTED, ALREADY_HANDLED, NO_SLOT, COMMIT_FAILED, NOTIFIED and NOTIFY_SKIPPED
// are terminal.
package acceptance

// Stage is the position of a job in the pass.
type Stage string

const (
	StageDiscovered     Stage = "DISCOVERED"
	StageSorted         Stage = "SORTED"
	StageAlreadyHandled Stage = "ALREADY_HANDLED"
	StageRejected       Stage = "REJECTED"
	StagePassed         Stage = "PASSED"
	StageNoSlot         Stage = "NO_SLOT"
	StageSlotSelected   Stage = "SLOT_SELECTED"
	StageCommitFailed   Stage = "COMMIT_FAILED"
	StageCommitted      Stage = "COMMITTED"
	StageNotified       Stage = "NOTIFIED"
	StageNotifySkipped  Stage = "NOTIFY_SKIPPED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Stage][]Stage{
	StageDiscovered:   {StageSorted},
	StageSorted:       {StageAlreadyHandled, StageRejected, StagePassed},
	StagePassed:       {StageRejected, StageNoSlot, StageSlotSelected},
	StageSlotSelected: {StageCommitFailed, StageCommitted},
	StageCommitted:    {StageNotified, StageNotifySkipped},
	// terminal stages have no outgoing transitions
}

// IsTransitionAllowed reports whether a job may move from → to.
func IsTransitionAllowed(from, to Stage) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s Stage) bool {
	switch s {
	case StageAlreadyHandled, StageRejected, StageNoSlot, StageCommitFailed, StageNotified, StageNotifySkipped:
		return true
	}
	return false
}

// IsBooked reports whether the job ended the pass with a committed booking.
func IsBooked(s Stage) bool {
	return s == StageNotified || s == StageNotifySkipped || s == StageCommitted
}
