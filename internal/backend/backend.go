// Package backend defines the uniform translate contract implemented once
// per external provider, and the four concrete adapters the ensemble fans
// out to: an Anthropic-backed contextual LLM, Google Cloud Translation, a
// DeepL-class fluency-optimized neural MT service, and an OpenAI-backed
// second contextual LLM.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/ensembleerr"
)

// Job is what the orchestrator hands to a Backend for one chunk.
type Job struct {
	Text       string
	SourceLang string
	TargetLang string
	// Context is advisory carry-context: the preceding chunk's source text,
	// prepended to the request without being treated as text to translate.
	Context string
}

// Backend is the uniform translate contract. Every adapter owns its own
// request shaping, authentication, response parsing, confidence heuristic,
// and provider-specific preflight.
type Backend interface {
	// MethodName is the stable identifier used in reports and tie-breaks.
	MethodName() string

	// Translate performs one synchronous, blocking translation call. The
	// caller wraps it with retry/backoff and a latency timer externally;
	// Translate itself only measures its own latency into the Candidate.
	Translate(ctx context.Context, job Job) (ensemble.Candidate, error)
}

// emptyInputCandidate builds the required Candidate for empty input: no
// network call, error = "empty input". The accompanying error is a
// BackendClientError so the retry layer never retries a call that was
// never going to reach the wire.
func emptyInputCandidate(methodName, text string) (ensemble.Candidate, error) {
	c := ensemble.Candidate{
		BackendID:  methodName,
		SourceText: text,
		Err:        "empty input",
	}
	return c, &ensembleerr.BackendClientError{Backend: methodName, Reason: "empty input"}
}

// isEmpty reports whether job.Text is empty after trimming.
func isEmpty(text string) bool {
	return strings.TrimSpace(text) == ""
}

// withLatency runs fn and stamps the elapsed wall-clock time onto the
// returned Candidate, following every adapter's `defer func(){ latency }`
// pattern. The error fn returns is passed through unchanged so callers can
// propagate a classification-bearing error to the retry layer.
func withLatency(fn func() (ensemble.Candidate, error)) (ensemble.Candidate, error) {
	start := time.Now()
	c, err := fn()
	c.Latency = time.Since(start)
	return c, err
}

// httpStatusError reports the HTTP status code an adapter read directly
// off a provider's response, letting classify.Retryable apply the real
// 4xx/5xx split instead of defaulting every unclassified failure to
// retryable.
type httpStatusError struct {
	backend string
	status  int
	reason  string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.backend, e.reason)
}

func (e *httpStatusError) StatusCode() int { return e.status }

// newHTTPStatusError builds a classify-aware error from a concrete HTTP
// response status and body.
func newHTTPStatusError(backendName string, status int, body string) error {
	return &httpStatusError{
		backend: backendName,
		status:  status,
		reason:  fmt.Sprintf("API returned status %d: %s", status, body),
	}
}
