package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunVersionText(t *testing.T) {
	var out, errOut strings.Builder
	if err := run(context.Background(), &out, &errOut, []string{"version"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "autogen") {
		t.Errorf("version output missing program name: %q", out.String())
	}
	if !strings.Contains(out.String(), "go_version:") {
		t.Errorf("version output missing go_version: %q", out.String())
	}
}

func TestRunVersionJSON(t *testing.T) {
	var out, errOut strings.Builder
	if err := run(context.Background(), &out, &errOut, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out.String()), &info); err != nil {
		t.Fatalf("version -o json produced invalid JSON: %v", err)
	}
	if info["go_version"] == "" {
		t.Error("missing go_version field")
	}
}

func TestRunNoArgsPrintsUsage(t *testing.T) {
	var out, errOut strings.Builder
	if err := run(context.Background(), &out, &errOut, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Usage: autogen") {
		t.Errorf("expected usage text, got %q", out.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut, []string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command error, got %v", err)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut, []string{"-frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("expected unknown flag error, got %v", err)
	}
}

func TestRunBadOutputFormat(t *testing.T) {
	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut, []string{"-o", "xml", "version"})
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("expected output format error, got %v", err)
	}
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "autogen.yaml", "data_dir: "+dir+"\n")
	autoPath := writeFile(t, dir, "auto.yaml", `
alias: Motion light
trigger:
  - platform: state
    entity_id: binary_sensor.hallway_motion
    to: "on"
action:
  - service: light.turn_on
    target:
      entity_id: light.hallway
`)

	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut,
		[]string{"-config", cfgPath, "validate", autoPath})
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, errOut.String())
	}
	if !strings.Contains(out.String(), "valid") {
		t.Errorf("expected valid verdict, got %q", out.String())
	}
}

func TestRunValidateBrokenYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "autogen.yaml", "data_dir: "+dir+"\n")
	autoPath := writeFile(t, dir, "broken.yaml", "alias: [unclosed\n")

	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut,
		[]string{"-config", cfgPath, "validate", autoPath})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("expected validation failure, got %v", err)
	}
	if !strings.Contains(out.String(), "INVALID") {
		t.Errorf("expected INVALID verdict, got %q", out.String())
	}
}

func TestRunValidateMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "autogen.yaml", "data_dir: "+dir+"\n")

	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut,
		[]string{"-config", cfgPath, "validate", filepath.Join(dir, "nope.yaml")})
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRunDeployRequiresConfigDir(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "autogen.yaml", "data_dir: "+dir+"\n")
	autoPath := writeFile(t, dir, "auto.yaml", "alias: Test\ntrigger: []\naction: []\n")

	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut,
		[]string{"-config", cfgPath, "deploy", autoPath})
	if err == nil || !strings.Contains(err.Error(), "config_dir") {
		t.Errorf("expected config_dir error, got %v", err)
	}
}

func TestRunTemplatesListEmpty(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "autogen.yaml", "data_dir: "+dir+"\n")

	var out, errOut strings.Builder
	if err := run(context.Background(), &out, &errOut,
		[]string{"-config", cfgPath, "templates", "list"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "No templates") {
		t.Errorf("expected empty listing, got %q", out.String())
	}
}

func TestRunTemplatesAddAndList(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "autogen.yaml", "data_dir: "+dir+"\n")

	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut,
		[]string{"-config", cfgPath, "templates", "add", "house-style", "automation", "prepend", "Prefer scenes over individual light calls."})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out.String(), "Created template") {
		t.Errorf("unexpected add output: %q", out.String())
	}

	out.Reset()
	if err := run(context.Background(), &out, &errOut,
		[]string{"-config", cfgPath, "templates", "list"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "house-style") {
		t.Errorf("expected template in listing, got %q", out.String())
	}
}

func TestRunReviewRequiresToken(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "autogen.yaml", "data_dir: "+dir+"\n")

	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut,
		[]string{"-config", cfgPath, "review"})
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("expected token error, got %v", err)
	}
}

func TestRunMissingConfig(t *testing.T) {
	var out, errOut strings.Builder
	err := run(context.Background(), &out, &errOut,
		[]string{"-config", "/nonexistent/autogen.yaml", "analyze"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected config not found error, got %v", err)
	}
}
