package registry

import (
	"testing"

	"github.com/valpere/ensembletran/internal/config"
)

func clearBackendEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY",
		"GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_TRANSLATE_API_KEY",
		"DEEPL_API_KEY",
		"OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestNew_NoCredentialsRegistersNothing(t *testing.T) {
	clearBackendEnv(t)
	reg, err := New(config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("expected 0 registered backends, got %d", reg.Len())
	}
}

func TestNew_ExplicitCredentialTakesPrecedenceOverEnv(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg := config.Default()
	cfg.Credentials.AnthropicAPIKey = "explicit-key"

	reg, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 registered backend, got %d", reg.Len())
	}
	apiKey, _ := reg.JudgeCredential()
	if apiKey != "explicit-key" {
		t.Errorf("expected explicit credential to win over env var, got %q", apiKey)
	}
}

func TestNew_EnvVarFallback(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("OPENAI_API_KEY", "env-openai-key")

	reg, err := New(config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 registered backend from env fallback, got %d", reg.Len())
	}
	if reg.Backends()[0].MethodName() != "openai" {
		t.Errorf("expected openai backend, got %s", reg.Backends()[0].MethodName())
	}
}

func TestNew_GoogleRegistersOnAPIKeyAloneWithoutCredentialsFile(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GOOGLE_TRANSLATE_API_KEY", "api-key-only")

	reg, err := New(config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected google backend to register on API key alone, got %d backends", reg.Len())
	}
}

func TestNew_AllFourRegisterTogether(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "k1")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/creds.json")
	t.Setenv("DEEPL_API_KEY", "k3")
	t.Setenv("OPENAI_API_KEY", "k4")

	reg, err := New(config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 4 {
		t.Fatalf("expected 4 registered backends, got %d", reg.Len())
	}
	if len(reg.PreferenceOrder()) != 4 {
		t.Errorf("expected default 4-entry preference order, got %v", reg.PreferenceOrder())
	}
}

func TestNew_DefaultsPreferenceOrderWhenUnset(t *testing.T) {
	clearBackendEnv(t)
	cfg := config.Default()
	cfg.PreferenceOrder = nil
	reg, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.PreferenceOrder()) == 0 {
		t.Error("expected a non-empty default preference order")
	}
}
