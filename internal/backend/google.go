package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/valpere/ensembletran/internal/detector"
	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/ensembleerr"
)

// googleDirectEndpoint is the v2 REST endpoint used when no credentials
// file is configured but an API key is.
const googleDirectEndpoint = "https://translation.googleapis.com/language/translate/v2"

// GoogleBackend realizes the Statistical/Neural MT A role via Google Cloud
// Translation, picking its transport the way the original implementation's
// _init_client does: the official SDK when credentials are available (a
// credentials file, or ambient application-default credentials when
// neither a file nor an API key is configured), falling back to a direct
// HTTPS call authenticated by a bare API key otherwise.
type GoogleBackend struct {
	credentialsFile string
	apiKey          string
	det             *detector.Detector
	httpClient      *http.Client
}

// NewGoogleBackend builds a Backend. When credentialsFile is empty and
// apiKey is set, apiKey drives the direct-HTTPS fallback transport
// (whether or not application-default credentials exist); when both are
// empty, the official SDK relies on application-default credentials.
func NewGoogleBackend(credentialsFile, apiKey string) *GoogleBackend {
	return &GoogleBackend{
		credentialsFile: credentialsFile,
		apiKey:          apiKey,
		det:             detector.New(),
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *GoogleBackend) MethodName() string { return "google" }

func (b *GoogleBackend) Translate(ctx context.Context, job Job) (ensemble.Candidate, error) {
	if isEmpty(job.Text) {
		return emptyInputCandidate(b.MethodName(), job.Text)
	}

	// Only fall back to direct HTTPS when there is no credentials file to
	// hand the official SDK; with neither, the SDK still attempts ambient
	// application-default credentials before giving up.
	if b.credentialsFile == "" && b.apiKey != "" {
		return b.translateDirect(ctx, job)
	}
	return b.translateSDK(ctx, job)
}

func (b *GoogleBackend) translateSDK(ctx context.Context, job Job) (ensemble.Candidate, error) {
	return withLatency(func() (ensemble.Candidate, error) {
		c := ensemble.Candidate{BackendID: b.MethodName(), SourceText: job.Text}

		targetTag, err := language.Parse(job.TargetLang)
		if err != nil {
			c.Err = fmt.Sprintf("invalid target language: %v", err)
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}

		var opts []option.ClientOption
		if b.credentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(b.credentialsFile))
		}

		client, err := translate.NewClient(ctx, opts...)
		if err != nil {
			c.Err = fmt.Sprintf("failed to create client: %v", err)
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}
		defer client.Close()

		var translations []translate.Translation
		if job.SourceLang == "" || job.SourceLang == "auto" {
			translations, err = client.Translate(ctx, []string{job.Text}, targetTag, nil)
		} else {
			sourceTag, _ := language.Parse(job.SourceLang)
			translations, err = client.Translate(ctx, []string{job.Text}, targetTag, &translate.Options{
				Source: sourceTag,
			})
		}
		if err != nil {
			c.Err = fmt.Sprintf("translation failed: %v", err)
			return c, err
		}
		if len(translations) == 0 || strings.TrimSpace(translations[0].Text) == "" {
			c.Err = "empty translation response"
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}

		confidence := 0.82
		if detected, ok := b.det.DetectISO(job.Text); ok && job.SourceLang != "" && strings.EqualFold(detected, job.SourceLang) {
			confidence += 0.03
		}

		c.TranslatedText = translations[0].Text
		c.SelfConfidence = confidence
		c.Metadata = map[string]string{"backend": "google_cloud", "detected_source": translations[0].Source.String()}
		return c, nil
	})
}

// translateDirect calls the v2 REST endpoint directly with a bare API key,
// the fallback transport for environments with no service-account
// credentials file configured.
func (b *GoogleBackend) translateDirect(ctx context.Context, job Job) (ensemble.Candidate, error) {
	return withLatency(func() (ensemble.Candidate, error) {
		c := ensemble.Candidate{BackendID: b.MethodName(), SourceText: job.Text}

		form := url.Values{}
		form.Set("q", job.Text)
		form.Set("target", job.TargetLang)
		form.Set("format", "text")
		form.Set("key", b.apiKey)
		if job.SourceLang != "" && job.SourceLang != "auto" {
			form.Set("source", job.SourceLang)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, googleDirectEndpoint, strings.NewReader(form.Encode()))
		if err != nil {
			c.Err = fmt.Sprintf("failed to create request: %v", err)
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := b.httpClient.Do(httpReq)
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

		var directResp struct {
			Data struct {
				Translations []struct {
					TranslatedText         string `json:"translatedText"`
					DetectedSourceLanguage string `json:"detectedSourceLanguage"`
				} `json:"translations"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&directResp); err != nil {
			c.Err = fmt.Sprintf("failed to decode response: %v", err)
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}
		if len(directResp.Data.Translations) == 0 || strings.TrimSpace(directResp.Data.Translations[0].TranslatedText) == "" {
			c.Err = "empty translation response"
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}

		translation := directResp.Data.Translations[0]
		confidence := 0.82
		if job.SourceLang != "" && strings.EqualFold(translation.DetectedSourceLanguage, job.SourceLang) {
			confidence = 0.85
		}

		c.TranslatedText = translation.TranslatedText
		c.SelfConfidence = confidence
		c.Metadata = map[string]string{"backend": "direct_https", "detected_source": translation.DetectedSourceLanguage}
		return c, nil
	})
}
