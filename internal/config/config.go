// Package config handles autogen configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./autogen.yaml, ~/.config/autogen/autogen.yaml, /etc/autogen/autogen.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"autogen.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "autogen", "autogen.yaml"))
	}

	paths = append(paths, "/etc/autogen/autogen.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all autogen configuration.
type Config struct {
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	LLM           LLMConfig           `yaml:"llm"`
	Deploy        DeployConfig        `yaml:"deploy"`
	DataDir       string              `yaml:"data_dir"`
	LogLevel      string              `yaml:"log_level"`
	LogFormat     string              `yaml:"log_format"`
}

// HomeAssistantConfig defines HA connection settings.
type HomeAssistantConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// LLMConfig defines the text-generation backend used for reviews.
type LLMConfig struct {
	// Backend selects the provider: "ollama" or "openai".
	Backend string `yaml:"backend"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// APIKey is only used by the openai backend. Ollama needs none.
	APIKey string `yaml:"api_key"`
}

// DeployConfig defines where generated automations are written.
type DeployConfig struct {
	// ConfigDir is the Home Assistant configuration directory containing
	// automations.yaml.
	ConfigDir string `yaml:"config_dir"`
	// BackupDir overrides the backup location. Defaults to
	// <config_dir>/autogen_backups.
	BackupDir string `yaml:"backup_dir"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables so tokens can live outside the file.
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		HomeAssistant: HomeAssistantConfig{
			URL: "http://homeassistant.local:8123",
		},
		LLM: LLMConfig{
			Backend: "ollama",
			BaseURL: "http://localhost:11434",
			Model:   "qwen3:4b",
		},
		DataDir: "data",
	}
}
