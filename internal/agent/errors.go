package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects a message while another is being processed on the same session.
	ErrBusy = errors.New("session is busy processing another message")

	ErrEmptyMessage = errors.New("message is empty")

	// ErrIterationBudgetExhausted is recorded on the fallback response when the
	// loop hits its iteration cap. It is never returned to callers.
	ErrIterationBudgetExhausted = errors.New("iteration budget exhausted")

	ErrNoArchive = errors.New("no action archive configured")
)

// FaultError is an unexpected failure inside the loop, recovered at the
// ProcessMessage boundary.
type FaultError struct {
	Cause any
	Stack []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("orchestrator fault: %v", e.Cause)
}

func (e *FaultError) Unwrap() error {
	err, _ := e.Cause.(error)
	return err
}
