package alerts

import (
	"errors"
	"testing"
)

func TestCanTransition_Table(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusCreated, StatusAssigned, true},
		{StatusCreated, StatusEscalated, true},
		{StatusCreated, StatusAcknowledged, false},
		{StatusCreated, StatusResolved, false},

		{StatusAssigned, StatusAcknowledged, true},
		{StatusAssigned, StatusEscalated, true},
		{StatusAssigned, StatusAssigned, true}, // reassignment
		{StatusAssigned, StatusResolved, false},
		{StatusAssigned, StatusInvestigating, false},

		{StatusAcknowledged, StatusInvestigating, true},
		{StatusAcknowledged, StatusResolved, true},
		{StatusAcknowledged, StatusEscalated, true},
		{StatusAcknowledged, StatusAssigned, false},

		{StatusInvestigating, StatusResolved, true},
		{StatusInvestigating, StatusEscalated, true},
		{StatusInvestigating, StatusAcknowledged, false},

		{StatusEscalated, StatusAssigned, true},
		{StatusEscalated, StatusResolved, true},
		{StatusEscalated, StatusAcknowledged, false},
		{StatusEscalated, StatusInvestigating, false},

		{StatusResolved, StatusAssigned, false},
		{StatusResolved, StatusEscalated, false},
		{StatusResolved, StatusCreated, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestCanTransition_SelfIsAlwaysAllowed(t *testing.T) {
	for _, s := range []Status{StatusCreated, StatusAssigned, StatusAcknowledged, StatusInvestigating, StatusEscalated, StatusResolved} {
		if !CanTransition(s, s) {
			t.Errorf("expected self-transition allowed for %s", s)
		}
	}
}

func TestInvalidTransitionError_Message(t *testing.T) {
	err := &InvalidTransitionError{From: StatusResolved, To: StatusAssigned}
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected errors.As to match")
	}
	if ite.From != StatusResolved || ite.To != StatusAssigned {
		t.Fatalf("unexpected fields: %+v", ite)
	}
	if ite.Error() == "" {
		t.Fatalf("expected non-empty message")
	}
}
