package core

import (
	"errors"
	"fmt"
)

// ErrKind enumerates the error taxonomy surfaced by the run executor. Each
// kind carries a fixed propagation rule: whether it is fatal for the run,
// and what the resulting delivery record looks like.
type ErrKind string

const (
	ErrVCSAuth       ErrKind = "VCS_AUTH"
	ErrVCSRate       ErrKind = "VCS_RATE"
	ErrLLMFail       ErrKind = "LLM_FAIL"
	ErrQuotaReached  ErrKind = "QUOTA_REACHED"
	ErrDeliveryFail  ErrKind = "DELIVERY_FAIL"
	ErrNoActivity    ErrKind = "NO_ACTIVITY"
	ErrNoRecipients  ErrKind = "NO_RECIPIENTS"
	ErrInternal      ErrKind = "INTERNAL"
)

// PipelineError is a captured pipeline failure, never thrown as control
// flow: callers inspect Kind to decide the run's terminal delivery state.
type PipelineError struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewPipelineError(kind ErrKind, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrKind from err, defaulting to ErrInternal for any
// error that did not originate as a PipelineError.
func KindOf(err error) ErrKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrInternal
}
