package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StatePending, false},
		{StateAccepted, false},
		{StateCommitted, false},
		{StateRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"pending", StatePending, true},
		{"rejected", StateRejected, true},
		{"invalid state", State("INVALID"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTrigger_String(t *testing.T) {
	if got := TriggerAccept.String(); got != "ACCEPT" {
		t.Errorf("Trigger.String() = %v, want %v", got, "ACCEPT")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestReviewMachine_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	machine := NewReviewMachine(StatePending, nil)

	if got := machine.State(); got != StatePending {
		t.Fatalf("initial state = %v, want %v", got, StatePending)
	}

	if err := machine.Fire(ctx, TriggerAccept); err != nil {
		t.Fatalf("Fire(ACCEPT) error = %v", err)
	}
	if got := machine.State(); got != StateAccepted {
		t.Fatalf("state after accept = %v, want %v", got, StateAccepted)
	}

	if err := machine.Fire(ctx, TriggerCommit); err != nil {
		t.Fatalf("Fire(COMMIT) error = %v", err)
	}
	if got := machine.State(); got != StateCommitted {
		t.Fatalf("state after commit = %v, want %v", got, StateCommitted)
	}

	// A resubmission reopens the invoice for another replace.
	if err := machine.Fire(ctx, TriggerReopen); err != nil {
		t.Fatalf("Fire(REOPEN) error = %v", err)
	}
	if got := machine.State(); got != StateAccepted {
		t.Fatalf("state after reopen = %v, want %v", got, StateAccepted)
	}
}

func TestReviewMachine_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		initial State
		trigger Trigger
	}{
		{"commit from pending", StatePending, TriggerCommit},
		{"reopen from pending", StatePending, TriggerReopen},
		{"accept from accepted", StateAccepted, TriggerAccept},
		{"reject from committed", StateCommitted, TriggerReject},
		{"any trigger from rejected", StateRejected, TriggerAccept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := NewReviewMachine(tt.initial, nil)
			err := machine.Fire(ctx, tt.trigger)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Fire(%s) error = %v, want ErrInvalidTransition", tt.trigger, err)
			}
			if got := machine.State(); got != tt.initial {
				t.Errorf("state changed to %v after failed fire", got)
			}
		})
	}
}

func TestReviewMachine_AcceptGuard(t *testing.T) {
	ctx := context.Background()

	machine := NewReviewMachine(StatePending, func(context.Context) bool { return false })
	err := machine.Fire(ctx, TriggerAccept)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire(ACCEPT) with failing guard error = %v, want ErrGuardFailed", err)
	}
	if got := machine.State(); got != StatePending {
		t.Fatalf("state after guarded fire = %v, want %v", got, StatePending)
	}

	machine = NewReviewMachine(StatePending, func(context.Context) bool { return true })
	if err := machine.Fire(ctx, TriggerAccept); err != nil {
		t.Fatalf("Fire(ACCEPT) with passing guard error = %v", err)
	}
}

func TestReviewMachine_CanFire(t *testing.T) {
	machine := NewReviewMachine(StateCommitted, nil)

	if !machine.CanFire(TriggerReopen) {
		t.Error("CanFire(REOPEN) from committed = false, want true")
	}
	if machine.CanFire(TriggerCommit) {
		t.Error("CanFire(COMMIT) from committed = true, want false")
	}

	triggers := machine.PermittedTriggers()
	if len(triggers) != 1 || triggers[0] != TriggerReopen {
		t.Errorf("PermittedTriggers() = %v, want [REOPEN]", triggers)
	}
}
