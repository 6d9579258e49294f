package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/cvfold/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRunConfigDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
task_name = " CB "
cv_dir = "/tmp/cv"
folds = 10
manifest = false
pushgateway = "http://localhost:9091"
`)
	cfg := config.DefaultRunConfig()
	if err := loadRunConfig(path, &cfg); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Task != "CB" {
		t.Fatalf("unexpected task: %q", cfg.Task)
	}
	if cfg.CVDir != "/tmp/cv" {
		t.Fatalf("unexpected cv dir: %q", cfg.CVDir)
	}
	if cfg.Folds != 10 {
		t.Fatalf("unexpected folds: %d", cfg.Folds)
	}
	if cfg.Seed != config.DefaultSeed {
		t.Fatalf("undefined seed should keep default, got %d", cfg.Seed)
	}
	if cfg.Manifest {
		t.Fatalf("expected manifest disabled")
	}
	if !cfg.SearchSpace {
		t.Fatalf("undefined search_space should keep default")
	}
	if cfg.DataDir != "" {
		t.Fatalf("undefined data_dir should stay empty, got %q", cfg.DataDir)
	}
	if cfg.Pushgateway != "http://localhost:9091" {
		t.Fatalf("unexpected pushgateway: %q", cfg.Pushgateway)
	}
}

func TestLoadRunConfigTemplate(t *testing.T) {
	tpl, err := config.Template("run")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	cfg := config.DefaultRunConfig()
	if err := loadRunConfig(writeConfig(t, tpl), &cfg); err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Task != "WiC" || cfg.Folds != 5 || cfg.Seed != 111 {
		t.Fatalf("unexpected template config: %+v", cfg)
	}
}

func TestLoadRunConfigUnknownKey(t *testing.T) {
	cfg := config.DefaultRunConfig()
	if err := loadRunConfig(writeConfig(t, "fold = 3\n"), &cfg); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadRunConfigBadType(t *testing.T) {
	cfg := config.DefaultRunConfig()
	if err := loadRunConfig(writeConfig(t, "folds = \"ten\"\n"), &cfg); err == nil {
		t.Fatalf("expected decode error")
	}
}
