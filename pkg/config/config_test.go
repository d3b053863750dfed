package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestConfigUsesEnvAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "env-google")
	t.Setenv("DEEPSEEK_API_KEY", "env-deepseek")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-ant" || cfg.OpenAIAPIKey != "env-openai" || cfg.GoogleAPIKey != "env-google" || cfg.DeepSeekAPIKey != "env-deepseek" {
		t.Fatalf("expected env API keys to be used")
	}
}

func TestConfigFallsBackToFileAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	configDir := filepath.Join(home, ".secdesk")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte("api_keys:\n  anthropic: file-ant\n  openai: file-openai\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "file-ant" {
		t.Errorf("anthropic key = %q, want file fallback", cfg.AnthropicAPIKey)
	}
	if cfg.OpenAIAPIKey != "env-openai" {
		t.Errorf("openai key = %q, env should win over file", cfg.OpenAIAPIKey)
	}
}

func TestConfigDefaultSpecialists(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Specialists == nil {
		t.Fatal("expected default specialists config")
	}
	if _, ok := cfg.Specialists.Targets[GeneralTarget]; !ok {
		t.Errorf("default specialists missing %q target", GeneralTarget)
	}
	if cfg.Specialists.ConfidenceThreshold != 0.55 {
		t.Errorf("threshold = %v", cfg.Specialists.ConfidenceThreshold)
	}
	if cfg.Specialists.MaxRounds != 2 {
		t.Errorf("max rounds = %d", cfg.Specialists.MaxRounds)
	}
}

func TestConfigLoadsSpecialistsFile(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	configDir := filepath.Join(home, ".secdesk")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte(`targets:
  threat_analysis:
    triggers: [malware]
    adapter: anthropic
    model: claude-opus-4-20250514
  general_response:
    adapter: anthropic
    model: claude-sonnet-4-20250514
confidence_threshold: 0.7
max_rounds: 3
`)
	if err := os.WriteFile(filepath.Join(configDir, "specialists.yaml"), data, 0600); err != nil {
		t.Fatalf("write specialists: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Specialists.ConfidenceThreshold != 0.7 {
		t.Errorf("threshold = %v", cfg.Specialists.ConfidenceThreshold)
	}
	if cfg.Specialists.MaxRounds != 3 {
		t.Errorf("max rounds = %d", cfg.Specialists.MaxRounds)
	}
	if len(cfg.Specialists.Targets) != 2 {
		t.Errorf("targets = %d", len(cfg.Specialists.Targets))
	}
}

func TestHasAdapter(t *testing.T) {
	cfg := &Config{AnthropicAPIKey: "key"}

	if !cfg.HasAdapter("anthropic") {
		t.Error("anthropic should be available")
	}
	if cfg.HasAdapter("openai") {
		t.Error("openai should not be available without a key")
	}
	if !cfg.HasAdapter("mock") {
		t.Error("mock is always available")
	}
	if cfg.HasAdapter("bogus") {
		t.Error("unknown adapter should not be available")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}
