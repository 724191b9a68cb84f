package config

import (
	"os"
	"path/filepath"
	"testing"

	"log/slog"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("log_level: debug\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/autogen.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autogen.yaml")
	os.WriteFile(path, []byte("log_level: info\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "autogen.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "autogen.yaml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autogen.yaml")
	os.WriteFile(path, []byte("homeassistant:\n  token: ${AUTOGEN_TEST_TOKEN}\n"), 0600)
	os.Setenv("AUTOGEN_TEST_TOKEN", "secret123")
	defer os.Unsetenv("AUTOGEN_TEST_TOKEN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HomeAssistant.Token != "secret123" {
		t.Errorf("token = %q, want %q", cfg.HomeAssistant.Token, "secret123")
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autogen.yaml")
	os.WriteFile(path, []byte("homeassistant:\n  url: http://ha.local:8123\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.Backend != "ollama" {
		t.Errorf("default backend = %q, want ollama", cfg.LLM.Backend)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("default base_url = %q", cfg.LLM.BaseURL)
	}
	if cfg.DataDir != "data" {
		t.Errorf("default data_dir = %q", cfg.DataDir)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autogen.yaml")
	os.WriteFile(path, []byte(`
homeassistant:
  url: http://ha.local:8123
  token: abc
llm:
  backend: openai
  base_url: http://localhost:8000
  model: qwen2.5:32b
  api_key: key123
deploy:
  config_dir: /config
  backup_dir: /config/backups
log_level: debug
`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.Backend != "openai" || cfg.LLM.APIKey != "key123" {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.Deploy.ConfigDir != "/config" {
		t.Errorf("config_dir = %q", cfg.Deploy.ConfigDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/autogen.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{" debug ", slog.LevelDebug, false},
		{"trace", LevelTrace, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReplaceLogLevelNames(t *testing.T) {
	a := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(LevelTrace)}
	got := ReplaceLogLevelNames(nil, a)
	if got.Value.String() != "TRACE" {
		t.Errorf("expected TRACE, got %q", got.Value.String())
	}

	b := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(slog.LevelInfo)}
	got = ReplaceLogLevelNames(nil, b)
	if got.Value.Any() != any(slog.LevelInfo) {
		t.Errorf("non-trace level should pass through, got %v", got.Value)
	}
}
