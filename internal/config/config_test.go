package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolvedPath, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if resolvedPath != path {
		t.Fatalf("resolved path = %q, want %q", resolvedPath, path)
	}

	if cfg.Paths.APIBind != "127.0.0.1:8417" {
		t.Errorf("api bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Intake.MaxEssayChars != 20000 {
		t.Errorf("max essay chars = %d", cfg.Intake.MaxEssayChars)
	}
	if cfg.Grading.MinCallSeconds != 60 {
		t.Errorf("min call seconds = %d", cfg.Grading.MinCallSeconds)
	}
	if cfg.Recovery.GracePeriodSeconds != 120 || cfg.Recovery.SweepIntervalSeconds != 300 {
		t.Errorf("recovery = %+v", cfg.Recovery)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Errorf("data dir not expanded: %q", cfg.Paths.DataDir)
	}
}

func TestLoadParsesFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[intake]
max_essay_chars = 500

[grading]
min_call_seconds = 90

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("existing file reported as missing")
	}
	if cfg.Intake.MaxEssayChars != 500 {
		t.Errorf("max essay chars = %d, want 500", cfg.Intake.MaxEssayChars)
	}
	if cfg.Grading.MinCallSeconds != 90 {
		t.Errorf("min call seconds = %d, want 90", cfg.Grading.MinCallSeconds)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// Untouched sections keep their defaults.
	if cfg.Scorer.Model == "" || cfg.Voice.BaseURL == "" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[intake\nbroken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSecretsOverlayFromEnvironment(t *testing.T) {
	t.Setenv("VIVA_API_TOKEN", "env-token")
	t.Setenv("VOICE_API_KEY", "env-voice-key")
	t.Setenv("VOICE_WEBHOOK_SECRET", "env-webhook")
	t.Setenv("SCORER_API_KEY", "env-scorer-key")

	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("api token = %q", cfg.Paths.APIToken)
	}
	if cfg.Voice.APIKey != "env-voice-key" {
		t.Errorf("voice key = %q", cfg.Voice.APIKey)
	}
	if cfg.Voice.WebhookSecret != "env-webhook" {
		t.Errorf("webhook secret = %q", cfg.Voice.WebhookSecret)
	}
	if cfg.Scorer.APIKey != "env-scorer-key" {
		t.Errorf("scorer key = %q", cfg.Scorer.APIKey)
	}
}

func TestFileSecretsWinOverEnvironment(t *testing.T) {
	t.Setenv("VOICE_API_KEY", "env-voice-key")

	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[voice]
api_key = "file-voice-key"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Voice.APIKey != "file-voice-key" {
		t.Errorf("voice key = %q, want file value", cfg.Voice.APIKey)
	}
}

func TestValidateRejectsEmptyScorerModel(t *testing.T) {
	cfg := Default()
	cfg.Scorer.Model = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "scorer.model") {
		t.Fatalf("err = %v, want scorer.model error", err)
	}
}

func TestValidateRejectsNonPositiveThresholds(t *testing.T) {
	cfg := Default()
	cfg.Grading.MinCallSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero min_call_seconds")
	}

	cfg = Default()
	cfg.Recovery.GracePeriodSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative grace period")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}

	expanded, err := ExpandPath("~/viva/data")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if expanded != filepath.Join(home, "viva", "data") {
		t.Errorf("expanded = %q", expanded)
	}

	absolute, err := ExpandPath("relative/dir")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if !filepath.IsAbs(absolute) {
		t.Errorf("relative path not made absolute: %q", absolute)
	}
}

func TestCreateSampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample not detected")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}
