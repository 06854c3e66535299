package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/ensembleerr"
)

// deeplSupportedSource is the set of source languages this DeepL-class
// backend accepts. Arabic is deliberately absent: the fluency-optimized
// neural MT role's preflight must reject it before any network call.
var deeplSupportedSource = map[string]bool{
	"en": true, "fr": true, "de": true, "es": true, "it": true, "pt": true,
	"nl": true, "pl": true, "ru": true, "ja": true, "zh": true,
}

// DeepLBackend realizes the fluency-optimized Neural MT role via the DeepL
// REST API, discriminating the free vs pro endpoint by the ":fx" key suffix.
type DeepLBackend struct {
	apiKey string
	client *http.Client
}

// NewDeepLBackend builds a Backend bound to apiKey.
func NewDeepLBackend(apiKey string) *DeepLBackend {
	return &DeepLBackend{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *DeepLBackend) MethodName() string { return "deepl" }

func (b *DeepLBackend) baseURL() string {
	if strings.HasSuffix(b.apiKey, ":fx") {
		return "https://api-free.deepl.com/v2/translate"
	}
	return "https://api.deepl.com/v2/translate"
}

func (b *DeepLBackend) Translate(ctx context.Context, job Job) (ensemble.Candidate, error) {
	if isEmpty(job.Text) {
		return emptyInputCandidate(b.MethodName(), job.Text)
	}

	c := ensemble.Candidate{BackendID: b.MethodName(), SourceText: job.Text}

	source := strings.ToLower(job.SourceLang)
	if source != "" && source != "auto" && !deeplSupportedSource[source] {
		c.Err = fmt.Sprintf("source language %q not supported by this backend", job.SourceLang)
		return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
	}

	return withLatency(func() (ensemble.Candidate, error) {
		payload := map[string]any{
			"text":                []string{job.Text},
			"target_lang":         deeplLangCode(job.TargetLang),
			"preserve_formatting": "1",
		}
		if source != "" && source != "auto" {
			payload["source_lang"] = deeplLangCode(source)
		}
		if job.Context != "" {
			payload["context"] = job.Context
		}

		body, err := json.Marshal(payload)
		if err != nil {
			c.Err = fmt.Sprintf("failed to marshal request: %v", err)
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL(), bytes.NewBuffer(body))
		if err != nil {
			c.Err = fmt.Sprintf("failed to create request: %v", err)
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", fmt.Sprintf("DeepL-Auth-Key %s", b.apiKey))

		resp, err := b.client.Do(httpReq)
		if err != nil {
			c.Err = fmt.Sprintf("request failed: %v", err)
			return c, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			c.Err = fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(respBody))
			return c, newHTTPStatusError(b.MethodName(), resp.StatusCode, string(respBody))
		}

		var deeplResp struct {
			Translations []struct {
				Text                   string `json:"text"`
				DetectedSourceLanguage string `json:"detected_source_language"`
			} `json:"translations"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&deeplResp); err != nil {
			c.Err = fmt.Sprintf("failed to decode response: %v", err)
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}
		if len(deeplResp.Translations) == 0 || strings.TrimSpace(deeplResp.Translations[0].Text) == "" {
			c.Err = "empty translation response"
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}

		detected := deeplResp.Translations[0].DetectedSourceLanguage
		confidence := 0.85
		if source != "" && strings.EqualFold(detected, source) {
			confidence += 0.03
		}

		c.TranslatedText = deeplResp.Translations[0].Text
		c.SelfConfidence = confidence
		c.Metadata = map[string]string{"detected_source": detected}
		return c, nil
	})
}

func deeplLangCode(code string) string {
	switch strings.ToLower(code) {
	case "en":
		return "EN-US"
	case "en-gb":
		return "EN-GB"
	case "en-us":
		return "EN-US"
	case "pt":
		return "PT-BR"
	default:
		return strings.ToUpper(code)
	}
}
