package acceptance_test

import (
	"testing"

	"jobmate/acceptance-service/internal/acceptance"
)

var allStages = []acceptance.Stage{
	acceptance.StageDiscovered,
	acceptance.StageSorted,
	acceptance.StageAlreadyHandled,
	acceptance.StageRejected,
	acceptance.StagePassed,
	acceptance.StageNoSlot,
	acceptance.StageSlotSelected,
	acceptance.StageCommitFailed,
	acceptance.StageCommitted,
	acceptance.StageNotified,
	acceptance.StageNotifySkipped,
}

// ── Transition matrix ──────────────────────────────────────────────────────

func TestIsTransitionAllowed(t *testing.T) {
	allowed := map[[2]acceptance.Stage]bool{
		{acceptance.StageDiscovered, acceptance.StageSorted}:         true,
		{acceptance.StageSorted, acceptance.StageAlreadyHandled}:     true,
		{acceptance.StageSorted, acceptance.StageRejected}:           true,
		{acceptance.StageSorted, acceptance.StagePassed}:             true,
		{acceptance.StagePassed, acceptance.StageRejected}:           true,
		{acceptance.StagePassed, acceptance.StageNoSlot}:             true,
		{acceptance.StagePassed, acceptance.StageSlotSelected}:       true,
		{acceptance.StageSlotSelected, acceptance.StageCommitFailed}: true,
		{acceptance.StageSlotSelected, acceptance.StageCommitted}:    true,
		{acceptance.StageCommitted, acceptance.StageNotified}:        true,
		{acceptance.StageCommitted, acceptance.StageNotifySkipped}:   true,
	}
	for _, from := range allStages {
		for _, to := range allStages {
			want := allowed[[2]acceptance.Stage{from, to}]
			if got := acceptance.IsTransitionAllowed(from, to); got != want {
				t.Errorf("IsTransitionAllowed(%s → %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

// Skipping the eligibility step must not be possible.
func TestIsTransitionAllowed_SortedCannotJumpToSlot(t *testing.T) {
	if acceptance.IsTransitionAllowed(acceptance.StageSorted, acceptance.StageSlotSelected) {
		t.Error("SORTED → SLOT_SELECTED must go through PASSED")
	}
	if acceptance.IsTransitionAllowed(acceptance.StagePassed, acceptance.StageCommitted) {
		t.Error("PASSED → COMMITTED must go through SLOT_SELECTED")
	}
}

// ── Terminal stages ────────────────────────────────────────────────────────

func TestIsTerminal(t *testing.T) {
	terminal := map[acceptance.Stage]bool{
		acceptance.StageAlreadyHandled: true,
		acceptance.StageRejected:       true,
		acceptance.StageNoSlot:         true,
		acceptance.StageCommitFailed:   true,
		acceptance.StageNotified:       true,
		acceptance.StageNotifySkipped:  true,
	}
	for _, s := range allStages {
		if got := acceptance.IsTerminal(s); got != terminal[s] {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, terminal[s])
		}
		if terminal[s] {
			for _, to := range allStages {
				if acceptance.IsTransitionAllowed(s, to) {
					t.Errorf("terminal %s has outgoing transition to %s", s, to)
				}
			}
		}
	}
}

func TestIsBooked(t *testing.T) {
	for _, s := range allStages {
		want := s == acceptance.StageCommitted || s == acceptance.StageNotified || s == acceptance.StageNotifySkipped
		if got := acceptance.IsBooked(s); got != want {
			t.Errorf("IsBooked(%s) = %v, want %v", s, got, want)
		}
	}
}
