// Package classify tells the retry layer whether a backend failure is
// worth retrying. It mirrors the status-code and SDK-exception checks the
// Python pipeline ran before deciding to back off and try again.
package classify

import (
	"errors"
	"net/http"
)

// StatusCoder is implemented by errors (or their nested response holders)
// that carry an HTTP status code, the same shape httpx/requests/anthropic/
// openai client errors expose on the Python side.
type StatusCoder interface {
	StatusCode() int
}

// HasStatusCode lets an error report a status code without itself
// implementing StatusCoder, for errors that nest a response object.
type HasStatusCode interface {
	Response() StatusCoder
}

// Retryable reports whether err should be retried: timeouts, connection
// resets, 5xx responses, and anything without a recognizable client-error
// shape. Auth failures, malformed requests, not-found, permission-denied,
// and unprocessable-entity responses — anything in the [400,500) band —
// are non-retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return !clientErrorStatus(sc.StatusCode())
	}

	var nested HasStatusCode
	if errors.As(err, &nested) {
		if r := nested.Response(); r != nil {
			return !clientErrorStatus(r.StatusCode())
		}
	}

	return true
}

func clientErrorStatus(code int) bool {
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}
