package comparison

import (
	"context"
	"errors"
	"fmt"
)

// Kinds of failure. Every error returned by this package matches exactly one
// of them with errors.Is, except cancellations which match the context error.
var (
	// ErrRandomizerUnavailable means no blinding factor could be produced in time. Retryable after backoff.
	ErrRandomizerUnavailable = errors.New("randomizer unavailable")
	// ErrPeerUnavailable means the peer is not set, gone, or unreachable. Retryable.
	ErrPeerUnavailable = errors.New("peer unavailable")
	// ErrCryptoOperationFailed covers malformed ciphertexts, mismatched keys and out of range plaintexts.
	ErrCryptoOperationFailed = errors.New("crypto operation failed")
	// ErrConfigurationInvalid means the parameters do not fit the keys.
	ErrConfigurationInvalid = errors.New("configuration invalid")
)

// Error reports the step of a comparison at which it failed.
type Error struct {
	// Step names the part of the protocol that failed.
	Step string
	// Kind is one of the Err* kinds above, nil for a cancellation.
	Kind error
	// Err is the underlying error
	Err error
}

func (e *Error) Error() string {
	if e.Kind == nil {
		return fmt.Sprintf("comparison: %s: %s", e.Step, e.Err)
	}
	return fmt.Sprintf("comparison: %s: %s: %s", e.Step, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Retryable reports whether a comparison that failed with err may be attempted again.
// A retry always runs with a fresh blinding factor.
func Retryable(err error) bool {
	return errors.Is(err, ErrPeerUnavailable) || errors.Is(err, ErrRandomizerUnavailable)
}

var kinds = []error{
	ErrRandomizerUnavailable,
	ErrPeerUnavailable,
	ErrCryptoOperationFailed,
	ErrConfigurationInvalid,
}

// kindOf returns the kind err already carries, or fallback.
func kindOf(err, fallback error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return fallback
}

// wrap returns an *Error for step, keeping the kind of err if it has one.
// An err that is already an *Error for the same kind is returned unchanged.
func wrap(step string, err, fallback error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Step: step, Kind: kindOf(err, fallback), Err: err}
}

// kindName is the wire form of a kind.
func kindName(kind error) string {
	switch kind {
	case ErrRandomizerUnavailable:
		return "randomizer"
	case ErrPeerUnavailable:
		return "peer"
	case ErrCryptoOperationFailed:
		return "crypto"
	case ErrConfigurationInvalid:
		return "configuration"
	}
	return ""
}

func kindFromName(name string) error {
	for _, k := range kinds {
		if kindName(k) == name {
			return k
		}
	}
	return ErrPeerUnavailable
}
