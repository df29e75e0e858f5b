package morph

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrBackendInit indicates the analyzer backend could not be constructed.
	ErrBackendInit = errors.New("morph: backend initialization failed")

	// ErrTokenization indicates the backend rejected or failed on an input.
	// It is record scoped: skip the field or record and continue.
	ErrTokenization = errors.New("morph: tokenization failed")

	// ErrNotFound indicates an answer does not occur in its re-tokenized context.
	ErrNotFound = errors.New("morph: answer not found in context")
)

// TokenizationError carries the text a backend failed on.
type TokenizationError struct {
	Text string
	Err  error
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("%v: %v (text %q)", ErrTokenization, e.Err, e.Text)
}

// Unwrap exposes both ErrTokenization and the backend cause to errors.Is.
func (e *TokenizationError) Unwrap() []error {
	return []error{ErrTokenization, e.Err}
}

// RelocationError reports an answer that could not be anchored in its context.
type RelocationError struct {
	Answer  string
	Context string
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("%v: answer %q, context %q", ErrNotFound, e.Answer, e.Context)
}

func (e *RelocationError) Unwrap() error {
	return ErrNotFound
}
