package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "erpassist.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected server address: %q", cfg.Server.Address)
	}
	if cfg.Catalog.Driver != "memory" || cfg.Session.Driver != "memory" || cfg.Audit.Sink.Driver != "memory" {
		t.Fatalf("unexpected drivers: %+v", cfg)
	}
	if cfg.Audit.Events.Driver != "none" {
		t.Fatalf("unexpected events driver: %q", cfg.Audit.Events.Driver)
	}
	if cfg.Auth.Mode != "disabled" {
		t.Fatalf("unexpected auth mode: %q", cfg.Auth.Mode)
	}
	if cfg.Intent.OpenAI.Model != "gpt-4o" || cfg.Intent.OpenAI.TimeoutSeconds != 60 {
		t.Fatalf("unexpected intent defaults: %+v", cfg.Intent)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "erpassist.json")
	content := `{
        "catalog": {"driver": "file", "path": "catalog.yaml"},
        "audit": {"sink": {"driver": "file", "path": "data/audit.jsonl"}}
    }`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Catalog.Path != filepath.Join(dir, "catalog.yaml") {
		t.Fatalf("catalog path not resolved: %q", cfg.Catalog.Path)
	}
	if cfg.Audit.Sink.Path != filepath.Join(dir, "data", "audit.jsonl") {
		t.Fatalf("audit path not resolved: %q", cfg.Audit.Sink.Path)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed json")
	}
}
