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
		{StateActive, false},
		{StateApproved, false},
		{StateDenied, true},
		{StateCancelled, true},
		{StateAwarded, true},
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
		{"active", StateActive, true},
		{"awarded", StateAwarded, true},
		{"unknown", State("PENDING"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	NewBuilder().Configure(State("INVALID"))
}

func TestBuilder_TerminalStateRejectsOutgoingTransitions(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() from a terminal state should panic")
		}
	}()

	NewBuilder().Configure(StateDenied).Permit(TriggerAdvance, StateActive)
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("INVALID"))
}

func TestStateMachine_Fire(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateActive).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerDeny, StateDenied)

	machine := builder.Build(StateActive)

	if !machine.CanFire(TriggerApprove) {
		t.Fatal("CanFire() should be true for a permitted trigger")
	}
	if machine.CanFire(TriggerAward) {
		t.Error("CanFire() should be false for an unconfigured trigger")
	}

	if err := machine.Fire(context.Background(), TriggerApprove); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if machine.State() != StateApproved {
		t.Errorf("State() = %v, want %v", machine.State(), StateApproved)
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateActive).Permit(TriggerCancel, StateCancelled)

	machine := builder.Build(StateCancelled)

	err := machine.Fire(context.Background(), TriggerCancel)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
	if machine.State() != StateCancelled {
		t.Errorf("state changed after a rejected trigger: %v", machine.State())
	}
}

func TestStateMachine_GuardSelection(t *testing.T) {
	presentation := false
	builder := NewBuilder()
	builder.Configure(StateApproved).
		PermitIf(TriggerAward, StateAwarded, func(ctx context.Context) bool { return presentation })

	machine := builder.Build(StateApproved)

	err := machine.Fire(context.Background(), TriggerAward)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want ErrGuardFailed", err)
	}

	presentation = true
	if err := machine.Fire(context.Background(), TriggerAward); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if machine.State() != StateAwarded {
		t.Errorf("State() = %v, want %v", machine.State(), StateAwarded)
	}
}

func TestStateMachine_FirstPassingGuardWins(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateActive).
		PermitIf(TriggerAdvance, StateApproved, func(ctx context.Context) bool { return false }).
		Permit(TriggerAdvance, StateActive)

	machine := builder.Build(StateActive)
	if err := machine.Fire(context.Background(), TriggerAdvance); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if machine.State() != StateActive {
		t.Errorf("State() = %v, want %v", machine.State(), StateActive)
	}
}

func TestStateMachine_PermittedTriggersSorted(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateActive).
		Permit(TriggerDeny, StateDenied).
		Permit(TriggerCancel, StateCancelled).
		Permit(TriggerApprove, StateApproved)

	got := builder.Build(StateActive).PermittedTriggers()
	want := []Trigger{TriggerApprove, TriggerCancel, TriggerDeny}
	if len(got) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if n := len(builder.Build(StateAwarded).PermittedTriggers()); n != 0 {
		t.Errorf("terminal state should have no triggers, got %d", n)
	}
}

func TestStateMachine_BuildIsolatesLaterConfiguration(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateActive).Permit(TriggerApprove, StateApproved)

	machine := builder.Build(StateActive)
	builder.Configure(StateActive).Permit(TriggerCancel, StateCancelled)

	if machine.CanFire(TriggerCancel) {
		t.Error("a built machine must not see transitions configured afterwards")
	}
}

func TestIntegrityFault_MatchesSentinel(t *testing.T) {
	var err error = &IntegrityFault{RequestID: "r1", Stage: "SUPERVISOR", Status: "DENIED", Detail: "denied slot reached"}

	if !errors.Is(err, ErrWorkflowIntegrity) {
		t.Error("IntegrityFault should match ErrWorkflowIntegrity")
	}
	if errors.Is(err, ErrInvalidState) {
		t.Error("IntegrityFault must not match ErrInvalidState")
	}

	var fault *IntegrityFault
	if !errors.As(err, &fault) || fault.Stage != "SUPERVISOR" {
		t.Errorf("errors.As() did not recover the fault: %v", err)
	}
}
