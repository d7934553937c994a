package generator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackendUnavailable marks a single model call that failed, timed out or came back empty.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrAllCandidatesExhausted is returned when every model candidate failed.
	ErrAllCandidatesExhausted = errors.New("all model candidates exhausted")
	// ErrMalformedContract is returned when model output holds no parseable JSON payload.
	ErrMalformedContract = errors.New("malformed contract")
	// ErrPlanningFailed aborts a request: no plan could be produced and no default fits.
	ErrPlanningFailed = errors.New("planning failed")
	// ErrInvalidRequest is returned for requests the orchestrator refuses to start.
	ErrInvalidRequest = errors.New("invalid generation request")
)

// CandidateFailure is one failed attempt of a fallback run.
type CandidateFailure struct {
	Model string
	Err   error
}

// ExhaustedError lists every candidate that was tried before giving up.
type ExhaustedError struct {
	Attempts []CandidateFailure
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrAllCandidatesExhausted.Error() + ": no candidates"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Model, a.Err))
	}
	return ErrAllCandidatesExhausted.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllCandidatesExhausted
}

// Unwrap exposes the per-candidate errors to errors.Is / errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
