package markov

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus is returned when no usable sentence remains after filtering.
	ErrEmptyCorpus = errors.New("markov: empty corpus")
	// ErrCorruptModel is returned when a persisted model is malformed.
	ErrCorruptModel = errors.New("markov: corrupt model")
	// ErrNoSentenceFound is returned when every sampling attempt was rejected.
	ErrNoSentenceFound = errors.New("markov: no sentence found")
	// ErrInvalidOrder is returned for a chain order below 1.
	ErrInvalidOrder = errors.New("markov: order must be at least 1")
	// ErrOrderMismatch is returned when combining models of different orders.
	ErrOrderMismatch = errors.New("markov: model orders differ")
	// ErrUnknownStart is returned when a requested sentence start is not in the chain.
	ErrUnknownStart = errors.New("markov: start not found in chain")
)

// SampleError reports an exhausted sampling budget. It matches
// ErrNoSentenceFound with errors.Is.
type SampleError struct {
	Attempts int
	MaxChars int
	MinChars int
}

func (e *SampleError) Error() string {
	if e.MaxChars <= 0 {
		return fmt.Sprintf("%v after %d attempts", ErrNoSentenceFound, e.Attempts)
	}
	return fmt.Sprintf("%v within %d characters after %d attempts", ErrNoSentenceFound, e.MaxChars, e.Attempts)
}

func (e *SampleError) Unwrap() error {
	return ErrNoSentenceFound
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptModel, fmt.Sprintf(format, args...))
}
