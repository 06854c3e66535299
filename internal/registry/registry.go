// Package registry discovers which backends are usable from explicit
// configuration and process environment, and freezes them into an
// immutable, process-wide BackendRegistry plus a deterministic preference
// order for tie-breaking and single-backend passthrough.
package registry

import (
	"fmt"
	"os"

	"github.com/valpere/ensembletran/internal/backend"
	"github.com/valpere/ensembletran/internal/config"
)

// Registry is the frozen, read-only-after-construction set of backends the
// orchestrator fans out to.
type Registry struct {
	backends        []backend.Backend
	byID            map[string]backend.Backend
	preferenceOrder []string
	judgeAPIKey     string
	judgeModel      string
}

// Backends returns the registered backends in construction order.
func (r *Registry) Backends() []backend.Backend { return r.backends }

// Len reports how many backends were registered.
func (r *Registry) Len() int { return len(r.backends) }

// PreferenceOrder returns the deterministic tie-break order.
func (r *Registry) PreferenceOrder() []string { return r.preferenceOrder }

// JudgeCredential returns the credential the judge should use — the
// contextual-LLM-A (anthropic) credential, per the external-interfaces
// contract — and the configured judge model.
func (r *Registry) JudgeCredential() (apiKey, model string) {
	return r.judgeAPIKey, r.judgeModel
}

// New resolves credentials (explicit config first, then one environment
// variable per backend) and instantiates an adapter for every backend with
// a credential. A backend whose factory fails to construct is skipped with
// a logged warning, never treated as fatal.
func New(cfg config.Config) (*Registry, error) {
	creds := cfg.Credentials

	anthropicKey := firstNonEmpty(creds.AnthropicAPIKey, os.Getenv("ANTHROPIC_API_KEY"))
	googleCreds := firstNonEmpty(creds.GoogleCredentialsFile, os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	googleAPIKey := firstNonEmpty(creds.GoogleAPIKey, os.Getenv("GOOGLE_TRANSLATE_API_KEY"))
	deeplKey := firstNonEmpty(creds.DeepLAPIKey, os.Getenv("DEEPL_API_KEY"))
	openaiKey := firstNonEmpty(creds.OpenAIAPIKey, os.Getenv("OPENAI_API_KEY"))

	var list []backend.Backend

	if anthropicKey != "" {
		list = append(list, backend.NewAnthropicBackend(anthropicKey, creds.AnthropicModel))
	} else {
		warn("anthropic", "no credential configured (ANTHROPIC_API_KEY)")
	}

	// Google Cloud Translation can also authenticate via ambient
	// application-default credentials, so an empty googleCreds is not
	// itself disqualifying — only skip when there is neither a
	// credentials file nor a direct-HTTPS-fallback API key configured.
	if googleCreds != "" || googleAPIKey != "" {
		list = append(list, backend.NewGoogleBackend(googleCreds, googleAPIKey))
	} else {
		warn("google", "no credential configured (GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_TRANSLATE_API_KEY)")
	}

	if deeplKey != "" {
		list = append(list, backend.NewDeepLBackend(deeplKey))
	} else {
		warn("deepl", "no credential configured (DEEPL_API_KEY)")
	}

	if openaiKey != "" {
		list = append(list, backend.NewOpenAIBackend(openaiKey, creds.OpenAIModel))
	} else {
		warn("openai", "no credential configured (OPENAI_API_KEY)")
	}

	preferenceOrder := cfg.PreferenceOrder
	if len(preferenceOrder) == 0 {
		preferenceOrder = config.Default().PreferenceOrder
	}

	byID := make(map[string]backend.Backend, len(list))
	for _, b := range list {
		byID[b.MethodName()] = b
	}

	return &Registry{
		backends:        list,
		byID:            byID,
		preferenceOrder: preferenceOrder,
		judgeAPIKey:     anthropicKey,
		judgeModel:      creds.JudgeModel,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func warn(backendID, reason string) {
	fmt.Fprintf(os.Stderr, "[registry] %s: %s, skipping\n", backendID, reason)
}
