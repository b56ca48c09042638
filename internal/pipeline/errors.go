package pipeline

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	InsufficientRows FailureKind = "INSUFFICIENT_ROWS"
	NoQualifyingData FailureKind = "NO_QUALIFYING_DATA"
	// MalformedNumericField is never returned; bad quantity cells read as 0.
	MalformedNumericField FailureKind = "MALFORMED_NUMERIC_FIELD"
	ReadFailure           FailureKind = "READ_FAILURE"
)

var (
	ErrInsufficientRows = errors.New("insufficient rows")
	ErrNoQualifyingData = errors.New("no qualifying data")
	ErrReadFailure      = errors.New("read failure")
)

// Failure is the outcome of a generation attempt that produced no pages.
type Failure struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Is(target error) bool {
	switch target {
	case ErrInsufficientRows:
		return f.Kind == InsufficientRows
	case ErrNoQualifyingData:
		return f.Kind == NoQualifyingData
	case ErrReadFailure:
		return f.Kind == ReadFailure
	}
	return false
}

// Message is the text shown to the user for a failed generation.
func (f *Failure) Message() string {
	switch f.Kind {
	case InsufficientRows:
		return "the file has too few rows to contain inventory data"
	case NoQualifyingData:
		return "no items with a keep quantity above zero were found"
	case ReadFailure:
		return "the file could not be read"
	default:
		return f.Error()
	}
}

func readFailure(err error) *Failure {
	return &Failure{Kind: ReadFailure, Err: err}
}

// AsFailure reports the Failure carried by err, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func insufficientRows(have, need int) *Failure {
	return &Failure{Kind: InsufficientRows, Detail: fmt.Sprintf("got %d rows, need at least %d", have, need)}
}
