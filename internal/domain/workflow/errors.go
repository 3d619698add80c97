package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when an action is attempted on a request in the wrong state
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrValidation is returned for malformed input; nothing was written
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a request, user or department does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor may not perform the action
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when the action was already performed
	ErrConflict = errors.New("conflict")

	// ErrWorkflowIntegrity is matched by every IntegrityFault
	ErrWorkflowIntegrity = errors.New("workflow integrity fault")
)

// IntegrityFault reports an approval chain in a shape no legal sequence of actions produces.
// It signals corrupted data or a bug upstream, never a business rejection.
type IntegrityFault struct {
	RequestID string
	Stage     string
	Status    string
	Detail    string
}

func (f *IntegrityFault) Error() string {
	if f.Stage == "" {
		return fmt.Sprintf("workflow integrity fault on request %s: %s", f.RequestID, f.Detail)
	}
	return fmt.Sprintf("workflow integrity fault on request %s at stage %s (%s): %s",
		f.RequestID, f.Stage, f.Status, f.Detail)
}

// Is makes errors.Is(err, ErrWorkflowIntegrity) hold for any fault
func (f *IntegrityFault) Is(target error) bool {
	return target == ErrWorkflowIntegrity
}
