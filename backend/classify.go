package backend

import (
	"context"
	"errors"
	"strings"
)

// Class tags a backend error as retryable or not.
type Class int

const (
	// ClassTransient errors (timeouts, overload, quota, connection resets)
	// are retried with backoff.
	ClassTransient Class = iota
	// ClassPermanent errors (bad input, auth, blocked) abort immediately.
	ClassPermanent
)

// PermanentError marks a provider failure that retrying cannot fix.
// Adapters wrap SDK errors in this when they can tell; everything else goes
// through substring classification.
type PermanentError struct {
	Provider string
	Err      error
}

func (e *PermanentError) Error() string {
	return "permanent " + e.Provider + " error: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Substrings identifying failures no retry can fix. Matched against the
// lower-cased error text because most provider SDKs surface HTTP-level
// failures as opaque strings rather than typed errors.
var permanentPatterns = []string{
	"invalid",
	"unauthorized",
	"unauthenticated",
	"forbidden",
	"permission denied",
	"not found",
	"bad request",
	"api key",
	"blocked",
	"safety",
}

// Classify maps an error to Permanent or Transient. Unknown errors are
// transient: timeouts, overload, 429/5xx signals and connection resets all
// deserve another attempt. Context cancellation counts as transient too,
// since the retry loop's own context handling ends the attempt chain.
func Classify(err error) Class {
	if err == nil {
		return ClassTransient
	}

	var perm *PermanentError
	if errors.As(err, &perm) {
		return ClassPermanent
	}
	if errors.Is(err, ErrNoText) {
		// An empty completion repeats on retry more often than not.
		return ClassPermanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range permanentPatterns {
		if strings.Contains(msg, pattern) {
			return ClassPermanent
		}
	}
	return ClassTransient
}
