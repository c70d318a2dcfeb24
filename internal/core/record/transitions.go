package record

// terminalStatuses are the statuses after which the unit's procedures expect no change.
// They are reported, not enforced: the store accepts any known status from any other.
var terminalStatuses = map[Kind][]string{
	KindIntervention:      {"terminee", "annulee"},
	KindSeriousIncident:   {"clos"},
	KindOperationalReport: {"validated"},
	KindLegalPV:           {"validated"},
	KindRegistryPV:        {"validated"},
}

// IsTerminal reports whether status is a terminal status of kind.
func IsTerminal(kind Kind, status string) bool {
	return contains(terminalStatuses[kind], status)
}

// StatusTransitionResult captures the outcome of a status change.
type StatusTransitionResult struct {
	NewStatus string
	// LeavesTerminal is set when a record moves out of a terminal status.
	// The change is accepted; callers log it so operators can spot reopened records.
	LeavesTerminal bool
}

// ApplyStatusTransition evaluates a status change.
// Any known status may follow any other; unknown statuses are rejected.
func ApplyStatusTransition(kind Kind, current, next string) (StatusTransitionResult, GuardResult) {
	spec, ok := Lookup(kind)
	if !ok {
		return StatusTransitionResult{}, deny("unknown record kind", "kind")
	}
	if !spec.HasStatus(next) {
		return StatusTransitionResult{}, checkValues(spec, Fields{FieldStatus: next})
	}
	return StatusTransitionResult{
		NewStatus:      next,
		LeavesTerminal: current != next && IsTerminal(kind, current),
	}, GuardResult{Allowed: true}
}
