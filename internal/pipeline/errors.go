package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a stage failure.
type Kind string

const (
	// Query-level failures, returned from Run.
	KindClassification Kind = "classification"
	KindGeneration     Kind = "generation"

	// Recovered locally into degraded state fields.
	KindFetch           Kind = "fetch"
	KindRetrieval       Kind = "retrieval"
	KindEvaluationParse Kind = "evaluation_parse"
)

var (
	// ErrClassification matches a failed routing or city-extraction call.
	ErrClassification = errors.New("classification failed")
	// ErrGeneration matches a failed answer-generation call.
	ErrGeneration = errors.New("generation failed")
)

// StageError is a query-level failure of one stage.
type StageError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *StageError) Is(target error) bool {
	switch target {
	case ErrClassification:
		return e.Kind == KindClassification
	case ErrGeneration:
		return e.Kind == KindGeneration
	}
	return false
}
