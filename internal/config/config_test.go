package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ParallelJobs != defaultParallelJobs {
		t.Fatalf("expected default parallel-jobs %d, got %d", defaultParallelJobs, cfg.ParallelJobs)
	}
	if cfg.ExitCodeOnError != defaultExitCodeOnError {
		t.Fatalf("expected default exit-code-on-error %d, got %d", defaultExitCodeOnError, cfg.ExitCodeOnError)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weave.yaml")
	if err := os.WriteFile(path, []byte("parallel-jobs: 8\nsingle-target: true\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ParallelJobs != 8 {
		t.Fatalf("expected parallel-jobs 8 from file, got %d", cfg.ParallelJobs)
	}
	if !cfg.SingleTarget {
		t.Fatalf("expected single-target true from file")
	}
}

func TestApplyFlags_OverridesConfig(t *testing.T) {
	cfg := Defaults()
	pj := 16
	cfg = cfg.ApplyFlags(&pj, nil, nil, nil, nil)
	if cfg.ParallelJobs != 16 {
		t.Fatalf("expected flag override to win, got %d", cfg.ParallelJobs)
	}
}
