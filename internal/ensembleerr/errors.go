// Package ensembleerr defines the named error kinds surfaced by the
// translation ensemble so callers can distinguish them with errors.As
// instead of parsing messages.
package ensembleerr

import (
	"fmt"
	"net/http"
)

// ConfigError indicates the backend registry had nothing usable at
// orchestrator construction time.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Reason)
}

// InputError indicates the caller's SourceJob failed basic validation
// before any backend was contacted.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error: %s", e.Reason)
}

// BackendTransportError wraps a retryable failure (timeout, connection
// reset, 5xx) that exhausted all retry attempts.
type BackendTransportError struct {
	Backend string
	Causes  []error
}

func (e *BackendTransportError) Error() string {
	if len(e.Causes) == 0 {
		return fmt.Sprintf("%s: transport error", e.Backend)
	}
	return fmt.Sprintf("%s: transport error after retries: %v", e.Backend, e.Causes[len(e.Causes)-1])
}

func (e *BackendTransportError) Unwrap() error {
	if len(e.Causes) == 0 {
		return nil
	}
	return e.Causes[len(e.Causes)-1]
}

// BackendClientError wraps a non-retryable failure: auth, malformed
// request, unsupported language, a garbled/empty response, or any
// 4xx-class response. Status carries an HTTP status code when one is set;
// the adapters in internal/backend leave it zero (they report HTTP
// response statuses through a separate status-bearing error), so for
// them StatusCode always falls back to 400.
type BackendClientError struct {
	Backend string
	Reason  string
	Status  int
}

func (e *BackendClientError) Error() string {
	return fmt.Sprintf("%s: client error: %s", e.Backend, e.Reason)
}

// StatusCode satisfies classify.StatusCoder so the retry layer treats
// every BackendClientError as non-retryable, regardless of whether it
// carries a concrete HTTP status.
func (e *BackendClientError) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusBadRequest
}

// BackendResultError indicates a provider call succeeded transport-wise
// but returned an empty or obviously truncated translation.
type BackendResultError struct {
	Backend string
	Reason  string
}

func (e *BackendResultError) Error() string {
	return fmt.Sprintf("%s: bad result: %s", e.Backend, e.Reason)
}

// JudgeError indicates the LLM judge failed or returned an unparseable
// response. It is always swallowed by the evaluator; exported so callers
// inspecting logs can recognize it.
type JudgeError struct {
	Reason string
}

func (e *JudgeError) Error() string {
	return fmt.Sprintf("judge error: %s", e.Reason)
}

// Deadline indicates a chunk's overall deadline elapsed before every
// backend call returned.
type Deadline struct {
	Backend string
}

func (e *Deadline) Error() string {
	if e.Backend == "" {
		return "deadline exceeded"
	}
	return fmt.Sprintf("%s: deadline exceeded", e.Backend)
}
