package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valpere/ensembletran/internal/classify"
	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/ensembleerr"
)

func TestIsEmpty(t *testing.T) {
	cases := map[string]bool{
		"":      true,
		"   ":   true,
		"\t\n":  true,
		"hello": false,
		" a ":   false,
	}
	for text, want := range cases {
		if got := isEmpty(text); got != want {
			t.Errorf("isEmpty(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestEmptyInputCandidate(t *testing.T) {
	c, err := emptyInputCandidate("anthropic", "")
	if c.BackendID != "anthropic" {
		t.Errorf("expected BackendID=anthropic, got %s", c.BackendID)
	}
	if c.Err != "empty input" {
		t.Errorf("expected Err=%q, got %q", "empty input", c.Err)
	}
	if c.Successful() {
		t.Error("expected empty-input candidate to be unsuccessful")
	}
	if err == nil {
		t.Fatal("expected a non-nil classification-bearing error")
	}
	if classify.Retryable(err) {
		t.Error("expected empty-input failures to be non-retryable")
	}
}

func TestWithLatency_StampsElapsed(t *testing.T) {
	c, err := withLatency(func() (ensemble.Candidate, error) {
		time.Sleep(5 * time.Millisecond)
		return ensemble.Candidate{BackendID: "stub"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Latency <= 0 {
		t.Error("expected positive latency to be stamped")
	}
	if c.BackendID != "stub" {
		t.Error("expected withLatency to preserve the wrapped candidate's fields")
	}
}

func TestWithLatency_PropagatesError(t *testing.T) {
	wantErr := &ensembleerr.BackendClientError{Backend: "stub", Reason: "boom"}
	c, err := withLatency(func() (ensemble.Candidate, error) {
		return ensemble.Candidate{BackendID: "stub", Err: "boom"}, wantErr
	})
	if err != wantErr {
		t.Errorf("expected withLatency to pass the error through unchanged, got %v", err)
	}
	if c.Latency <= 0 {
		t.Error("expected latency to still be stamped on a failed candidate")
	}
}

func TestAnthropicBackend_EmptyInput(t *testing.T) {
	b := NewAnthropicBackend("test-key", "")
	c, err := b.Translate(context.Background(), Job{Text: "   "})
	if c.Err != "empty input" {
		t.Errorf("expected empty-input error, got %q", c.Err)
	}
	if err == nil {
		t.Fatal("expected a non-nil error so the retry layer never dials out for empty input")
	}
	if classify.Retryable(err) {
		t.Error("expected empty-input failures to be non-retryable")
	}
	if b.MethodName() != "anthropic" {
		t.Errorf("expected method name anthropic, got %s", b.MethodName())
	}
}

func TestOpenAIBackend_EmptyInput(t *testing.T) {
	b := NewOpenAIBackend("test-key", "")
	c, err := b.Translate(context.Background(), Job{Text: ""})
	if c.Err != "empty input" {
		t.Errorf("expected empty-input error, got %q", c.Err)
	}
	if err == nil {
		t.Fatal("expected a non-nil error so the retry layer never dials out for empty input")
	}
	if classify.Retryable(err) {
		t.Error("expected empty-input failures to be non-retryable")
	}
	if b.MethodName() != "openai" {
		t.Errorf("expected method name openai, got %s", b.MethodName())
	}
}

func TestGoogleBackend_EmptyInput(t *testing.T) {
	b := NewGoogleBackend("", "")
	c, err := b.Translate(context.Background(), Job{Text: "\n\t"})
	if c.Err != "empty input" {
		t.Errorf("expected empty-input error, got %q", c.Err)
	}
	if err == nil {
		t.Fatal("expected a non-nil error so the retry layer never dials out for empty input")
	}
	if classify.Retryable(err) {
		t.Error("expected empty-input failures to be non-retryable")
	}
	if b.MethodName() != "google" {
		t.Errorf("expected method name google, got %s", b.MethodName())
	}
}

func TestDeepLBackend_EmptyInput(t *testing.T) {
	b := NewDeepLBackend("test-key")
	c, err := b.Translate(context.Background(), Job{Text: ""})
	if c.Err != "empty input" {
		t.Errorf("expected empty-input error, got %q", c.Err)
	}
	if err == nil {
		t.Fatal("expected a non-nil error so the retry layer never dials out for empty input")
	}
	if classify.Retryable(err) {
		t.Error("expected empty-input failures to be non-retryable")
	}
	if b.MethodName() != "deepl" {
		t.Errorf("expected method name deepl, got %s", b.MethodName())
	}
}

func TestDeepLBackend_RejectsArabicSourceBeforeNetworkCall(t *testing.T) {
	b := NewDeepLBackend("test-key")
	c, err := b.Translate(context.Background(), Job{Text: "مرحبا", SourceLang: "ar", TargetLang: "en"})
	if c.Successful() {
		t.Error("expected Arabic source to be rejected by preflight")
	}
	if c.Latency != 0 {
		t.Error("expected zero latency: preflight rejection must not reach withLatency/network")
	}
	if err == nil {
		t.Fatal("expected a non-nil error for the preflight rejection")
	}
	if classify.Retryable(err) {
		t.Error("expected a preflight rejection to be non-retryable: retrying never makes Arabic a supported DeepL source")
	}
	var clientErr *ensembleerr.BackendClientError
	if !errors.As(err, &clientErr) {
		t.Errorf("expected a *ensembleerr.BackendClientError, got %T", err)
	}
}

func TestDeepLBackend_FreeKeyUsesFreeEndpoint(t *testing.T) {
	b := NewDeepLBackend("test-key:fx")
	if b.baseURL() != "https://api-free.deepl.com/v2/translate" {
		t.Errorf("expected free endpoint for :fx key, got %s", b.baseURL())
	}
}

func TestDeepLLangCode(t *testing.T) {
	cases := map[string]string{
		"en":    "EN-US",
		"en-gb": "EN-GB",
		"en-us": "EN-US",
		"pt":    "PT-BR",
		"de":    "DE",
		"fr":    "FR",
	}
	for in, want := range cases {
		if got := deeplLangCode(in); got != want {
			t.Errorf("deeplLangCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPStatusError_ClassifiesByRealStatusCode(t *testing.T) {
	nonRetryable := newHTTPStatusError("deepl", 400, "bad request")
	if classify.Retryable(nonRetryable) {
		t.Error("expected a 400 response to be non-retryable")
	}
	retryable := newHTTPStatusError("deepl", 503, "service unavailable")
	if !classify.Retryable(retryable) {
		t.Error("expected a 503 response to be retryable")
	}
}
