// Package integrity aggregates proctoring signals into a single [0,1] score.
// The scheme is deliberately simple and auditable: start at 1.0, subtract a
// fixed penalty for every event beyond the policy's allowed threshold, floor
// at zero.
package integrity

import "github.com/examind/examind-backend/internal/model"

// PenaltyPerExcess is subtracted from the integrity score for each event
// beyond its type's allowed threshold.
const PenaltyPerExcess = 0.1

// Counts holds per-type proctoring event totals for one session. Reconnect
// events are audit-only and never penalized.
type Counts struct {
	FocusLost  int
	TabSwitch  int
	WebcamFlag int
}

// Excess returns how many events exceed the policy thresholds in total.
// Webcam flags have no tolerated allowance: every flag is an excess event
// when the policy requires a webcam.
func Excess(c Counts, p model.ProctoringPolicy) int {
	excess := 0
	if over := c.TabSwitch - p.TabSwitchLimit; over > 0 {
		excess += over
	}
	if over := c.FocusLost - p.FocusLossLimit; over > 0 {
		excess += over
	}
	if p.WebcamRequired {
		excess += c.WebcamFlag
	}
	return excess
}

// Aggregate computes the session's integrity score from its event counts and
// policy snapshot thresholds.
func Aggregate(c Counts, p model.ProctoringPolicy) float64 {
	score := 1.0 - PenaltyPerExcess*float64(Excess(c, p))
	if score < 0 {
		return 0
	}
	return score
}

// HardCapExceeded reports whether cumulative violations have crossed the
// policy's hard cap, which forces immediate finalization. A non-positive cap
// disables forced termination.
func HardCapExceeded(c Counts, p model.ProctoringPolicy) bool {
	if p.HardCap <= 0 {
		return false
	}
	return Excess(c, p) >= p.HardCap
}
