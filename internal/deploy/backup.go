package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CreateBackup copies source into backupDir under a timestamped name
// and returns the backup path. The source must exist. The backup
// directory is created on first use.
func CreateBackup(source, backupDir string) (string, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", source, err)
	}

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	base := filepath.Base(source)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s_%s%s",
		base[:len(base)-len(ext)],
		time.Now().Format("20060102_150405"),
		ext,
	)

	backupPath := filepath.Join(backupDir, name)
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return backupPath, nil
}
