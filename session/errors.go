package session

import (
	"errors"
	"fmt"
)

// ErrModelInvocationFailed matches every failure of the model capability:
// transport, auth, quota, timeout or an unusable reply.
var ErrModelInvocationFailed = errors.New("model invocation failed")

// ErrInvalidConfig is returned when generation parameters are out of range.
var ErrInvalidConfig = errors.New("invalid generation config")

// ErrInvalidHistory is returned by Resume when a transcript lacks the seed pair.
var ErrInvalidHistory = errors.New("invalid conversation history")

// InvocationError carries provider detail for a failed model call.
// errors.Is(err, ErrModelInvocationFailed) holds for every InvocationError.
type InvocationError struct {
	Provider   string
	StatusCode int    // HTTP status when the provider answered, else 0
	Message    string // provider supplied message, if any
	Err        error
}

func (e *InvocationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Provider != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (status %d): %s", ErrModelInvocationFailed, e.Provider, e.StatusCode, msg)
	case e.Provider != "":
		return fmt.Sprintf("%s: %s: %s", ErrModelInvocationFailed, e.Provider, msg)
	}
	return fmt.Sprintf("%s: %s", ErrModelInvocationFailed, msg)
}

func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrModelInvocationFailed}
	}
	return []error{ErrModelInvocationFailed, e.Err}
}

// normalize maps any error from a Model onto the closed taxonomy.
func normalize(err error) error {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return err
	}
	return &InvocationError{Err: err}
}
