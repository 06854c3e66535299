// Package config holds the ensemble's enumerated configuration knobs in a
// single struct consumed by internal/registry and internal/orchestrator,
// mirroring the teacher CLI's viper+cobra flag registration.
package config

import "time"

// Credentials groups one env-var-or-explicit-value credential per backend,
// resolved by internal/registry.
type Credentials struct {
	AnthropicAPIKey       string
	GoogleCredentialsFile string
	// GoogleAPIKey drives the direct-HTTPS fallback transport (§4.2) when no
	// GoogleCredentialsFile/application-default credentials are available.
	GoogleAPIKey string
	DeepLAPIKey  string
	OpenAIAPIKey string

	AnthropicModel string
	OpenAIModel    string
	JudgeModel     string
}

// Config recognizes exactly the enumerated parameter list: max_chunk_chars,
// chunk_overlap_chars, enable_ensemble, force_multi_method,
// quality_threshold, per_call_timeout, max_retries, base_backoff,
// max_backoff, judge_enabled, preference_order.
type Config struct {
	MaxChunkChars     int
	ChunkOverlapChars int

	EnableEnsemble   bool
	ForceMultiMethod bool

	QualityThreshold float64

	PerCallTimeout time.Duration
	MaxRetries     int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration

	JudgeEnabled bool

	PreferenceOrder []string

	Credentials Credentials
}

// Default returns a Config populated with the spec-mandated defaults.
func Default() Config {
	return Config{
		MaxChunkChars:     3000,
		ChunkOverlapChars: 200,
		EnableEnsemble:    true,
		ForceMultiMethod:  false,
		QualityThreshold:  0.10,
		PerCallTimeout:    60 * time.Second,
		MaxRetries:        3,
		BaseBackoff:       time.Second,
		MaxBackoff:        30 * time.Second,
		JudgeEnabled:      true,
		PreferenceOrder:   []string{"anthropic", "deepl", "openai", "google"},
	}
}
