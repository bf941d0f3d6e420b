package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// GuardError names the guards that rejected a configured transition
type GuardError struct {
	Trigger Trigger
	State   State
	Guards  []string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("%v: trigger %s from state %s (%s)", ErrGuardFailed, e.Trigger, e.State, strings.Join(e.Guards, ", "))
}

func (e *GuardError) Unwrap() error {
	return ErrGuardFailed
}

// FailedGuard returns the first guard that rejected the transition
func (e *GuardError) FailedGuard() string {
	if len(e.Guards) == 0 {
		return ""
	}
	return e.Guards[0]
}
