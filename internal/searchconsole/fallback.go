package searchconsole

import (
	"context"
	"strings"
)

// FallbackPredicate decides whether a failed first attempt should be retried
// with the alternate site identifier.
type FallbackPredicate func(err error) bool

// IsPermissionError is the default FallbackPredicate. The API answers with the
// same permission-denied text for missing access and for an identifier form that
// is not registered, so the message is the only signal available.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "permission")
}

// attempt is one call against the remote API.
type attempt[T any] func(ctx context.Context) (T, error)

// fallbackResult describes which path produced the returned value.
type fallbackResult int

const (
	fallbackNotTried fallbackResult = iota
	fallbackSucceeded
	fallbackFailed
)

// withPermissionFallback runs primary and, only when it fails with an error
// accepted by shouldFallback, runs fallback once. Errors are returned unchanged.
func withPermissionFallback[T any](
	ctx context.Context,
	shouldFallback FallbackPredicate,
	primary attempt[T],
	fallback attempt[T],
) (T, fallbackResult, error) {
	res, err := primary(ctx)
	if err == nil {
		return res, fallbackNotTried, nil
	}
	if !shouldFallback(err) {
		return res, fallbackNotTried, err
	}
	res, err = fallback(ctx)
	if err != nil {
		return res, fallbackFailed, err
	}
	return res, fallbackSucceeded, nil
}

func (r fallbackResult) String() string {
	switch r {
	case fallbackSucceeded:
		return "succeeded"
	case fallbackFailed:
		return "failed"
	default:
		return "not_tried"
	}
}
