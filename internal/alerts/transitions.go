package alerts

import "fmt"

// validTransitions is the alert lifecycle state machine.
//
// - resolved is terminal.
// - assigned -> assigned covers reassignment.
// - escalated re-enters the normal flow through assigned.
var validTransitions = map[Status][]Status{
	StatusCreated:       {StatusAssigned, StatusEscalated},
	StatusAssigned:      {StatusAcknowledged, StatusEscalated, StatusAssigned},
	StatusAcknowledged:  {StatusInvestigating, StatusResolved, StatusEscalated},
	StatusInvestigating: {StatusResolved, StatusEscalated},
	StatusEscalated:     {StatusAssigned, StatusResolved},
	StatusResolved:      {},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
// A self-transition is always allowed and treated as a no-op by callers.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidNext returns the legal successor statuses of from.
func ValidNext(from Status) []Status {
	next := validTransitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// InvalidTransitionError reports an illegal lifecycle step. Handlers map
// it to 409 Conflict.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s (valid: %v)", e.From, e.To, validTransitions[e.From])
}
