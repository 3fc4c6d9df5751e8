package buildfile

import (
	"os"
	"path/filepath"
	"testing"

	"weave/internal/graph"
	"weave/internal/target"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "weave.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoad_WiresHardAndSoftDependencies(t *testing.T) {
	// S7: fmt -> build -> test; test also soft-depends on lint, which is
	// declared but not hard-reachable from test.
	path := writeFile(t, `
targets:
  - name: fmt
    run: "true"
  - name: build
    run: "true"
    hardDependsOn: ["fmt"]
  - name: test
    run: "true"
    hardDependsOn: ["build"]
    softDependsOn: ["lint"]
  - name: lint
    run: "true"
`)

	r := target.New()
	adm := graph.NewAdmission(r)
	if _, err := Load(path, r, adm, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	build, err := r.GetTarget("build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(build.HardDependencies) != 1 || build.HardDependencies[0] != "fmt" {
		t.Fatalf("expected build to hard-depend on fmt, got %v", build.HardDependencies)
	}

	test, err := r.GetTarget("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(test.SoftDependencies) != 1 || test.SoftDependencies[0] != "lint" {
		t.Fatalf("expected test to soft-depend on lint, got %v", test.SoftDependencies)
	}
}

func TestLoad_RejectsDuplicateTargetNames(t *testing.T) {
	// S8
	path := writeFile(t, `
targets:
  - name: Build
    run: "true"
  - name: build
    run: "true"
`)

	r := target.New()
	adm := graph.NewAdmission(r)
	if _, err := Load(path, r, adm, nil); err == nil {
		t.Fatalf("expected an error for case-insensitively duplicate target names")
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeFile(t, `
targets:
  - name: build
    run: "true"
    typo_field: 1
`)
	r := target.New()
	adm := graph.NewAdmission(r)
	if _, err := Load(path, r, adm, nil); err == nil {
		t.Fatalf("expected an error for an unknown YAML field")
	}
}

func TestLoad_NoTargets(t *testing.T) {
	path := writeFile(t, "targets: []\n")
	r := target.New()
	adm := graph.NewAdmission(r)
	if _, err := Load(path, r, adm, nil); err == nil {
		t.Fatalf("expected an error for an empty target list")
	}
}
