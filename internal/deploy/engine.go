// Package deploy writes accepted automations into the Home Assistant
// configuration directory. Writes are atomic and optionally preceded
// by a timestamped backup so a bad deploy can be rolled back by hand.
package deploy

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/haforge/autogen/internal/config"
)

const automationsFile = "automations.yaml"

// Engine deploys automation YAML into automations.yaml.
type Engine struct {
	configDir string
	backupDir string
	logger    *slog.Logger
}

// Result reports what a deploy did.
type Result struct {
	AutomationID string
	Replaced     bool
	BackupPath   string
}

// NewEngine creates a deploy engine from config. BackupDir defaults to
// <config_dir>/autogen_backups.
func NewEngine(cfg config.DeployConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	backupDir := cfg.BackupDir
	if backupDir == "" {
		backupDir = filepath.Join(cfg.ConfigDir, "autogen_backups")
	}
	return &Engine{
		configDir: cfg.ConfigDir,
		backupDir: backupDir,
		logger:    logger,
	}
}

// Deploy parses one automation document and merges it into
// automations.yaml. An automation with an id matching an existing
// entry replaces it; otherwise the automation is appended. An id is
// assigned when the document has none.
func (e *Engine) Deploy(yamlText string, backupEnabled bool) (*Result, error) {
	if strings.TrimSpace(yamlText) == "" {
		return nil, fmt.Errorf("cannot deploy empty automation YAML")
	}

	var automation map[string]any
	if err := yaml.Unmarshal([]byte(yamlText), &automation); err != nil {
		return nil, fmt.Errorf("parse automation YAML: %w", err)
	}
	if automation == nil {
		return nil, fmt.Errorf("cannot deploy empty automation YAML")
	}

	automationID := EnsureAutomationID(automation)

	current, err := e.ReadCurrentAutomations()
	if err != nil {
		return nil, fmt.Errorf("read current automations: %w", err)
	}

	result := &Result{AutomationID: automationID}

	target := filepath.Join(e.configDir, automationsFile)
	if backupEnabled {
		if _, statErr := os.Stat(target); statErr == nil {
			backupPath, backupErr := CreateBackup(target, e.backupDir)
			if backupErr != nil {
				return nil, fmt.Errorf("create backup: %w", backupErr)
			}
			result.BackupPath = backupPath
			e.logger.Info("backed up automations", "path", backupPath)
		}
	}

	replaced := false
	for i, existing := range current {
		if id, ok := existing["id"].(string); ok && id == automationID {
			current[i] = automation
			replaced = true
			break
		}
	}
	if !replaced {
		current = append(current, automation)
	}
	result.Replaced = replaced

	if err := e.writeAutomations(current); err != nil {
		return nil, err
	}

	e.logger.Info("deployed automation",
		"automation_id", automationID,
		"replaced", replaced,
		"total", len(current),
	)
	return result, nil
}

// ReadCurrentAutomations reads automations.yaml. A missing or empty
// file yields an empty list.
func (e *Engine) ReadCurrentAutomations() ([]map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(e.configDir, automationsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []map[string]any{}, nil
		}
		return nil, err
	}

	var automations []map[string]any
	if err := yaml.Unmarshal(data, &automations); err != nil {
		return nil, fmt.Errorf("parse %s: %w", automationsFile, err)
	}
	if automations == nil {
		automations = []map[string]any{}
	}
	return automations, nil
}

// writeAutomations writes the full list atomically: marshal to a temp
// file in the same directory, then rename over the target.
func (e *Engine) writeAutomations(automations []map[string]any) error {
	data, err := yaml.Marshal(automations)
	if err != nil {
		return fmt.Errorf("marshal automations: %w", err)
	}

	target := filepath.Join(e.configDir, automationsFile)
	tmp, err := os.CreateTemp(e.configDir, ".automations-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", automationsFile, err)
	}
	return nil
}

// EnsureAutomationID returns the automation's id, generating and
// assigning one from the alias plus a random fragment when missing.
func EnsureAutomationID(automation map[string]any) string {
	if id, ok := automation["id"].(string); ok && id != "" {
		return id
	}

	alias, _ := automation["alias"].(string)
	id := Slugify(alias) + "_" + uuid.NewString()[:8]
	automation["id"] = id
	return id
}

// Slugify converts a title to a lowercase underscore identifier, at
// most 64 characters. An input with no usable characters yields
// "autogen_automation".
func Slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true // suppress leading underscores
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "autogen_automation"
	}
	if len(slug) > 64 {
		slug = strings.Trim(slug[:64], "_")
	}
	return slug
}
