package target

import "testing"

func TestCreateTarget_RejectsCaseInsensitiveDuplicate(t *testing.T) {
	r := New()
	if _, err := r.CreateTarget("Build", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.CreateTarget("build", func() error { return nil }); err == nil {
		t.Fatalf("expected an error for a case-insensitively duplicate name")
	}
}

func TestSetDescription_OneShotConsumedByNextTarget(t *testing.T) {
	r := New()
	if err := r.SetDescription("builds the thing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tgt, err := r.CreateTarget("Build", func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tgt.Description != "builds the thing" {
		t.Fatalf("expected description to carry over, got %q", tgt.Description)
	}
	if r.PendingDescription() {
		t.Fatalf("expected pending description to be cleared after consumption")
	}

	other, err := r.CreateTarget("Clean", func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.Description != "" {
		t.Fatalf("expected no description carried to an unrelated target, got %q", other.Description)
	}
}

func TestSetDescription_FailsWhenAlreadyPending(t *testing.T) {
	r := New()
	if err := r.SetDescription("first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.SetDescription("second"); err == nil {
		t.Fatalf("expected an error for a second description before a target consumes the first")
	}
}

func TestGetTarget_UnknownListsKnownNames(t *testing.T) {
	r := New()
	if _, err := r.CreateTarget("Build", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := r.GetTarget("Missing")
	if err == nil {
		t.Fatalf("expected an error for an unknown target")
	}
	if got := err.Error(); !contains(got, "Build") {
		t.Fatalf("expected error to list known target names, got %q", got)
	}
}

func TestRegisterFinal_StartsDeactivated(t *testing.T) {
	r := New()
	if _, err := r.RegisterFinal("Notify", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.ActivatedFinalTargets(); len(got) != 0 {
		t.Fatalf("expected no activated final targets yet, got %v", got)
	}
	if err := r.ActivateFinal("Notify"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.ActivatedFinalTargets(); len(got) != 1 || got[0] != "Notify" {
		t.Fatalf("expected Notify activated, got %v", got)
	}
}

func TestActivateFinal_UnknownNameFails(t *testing.T) {
	r := New()
	if err := r.ActivateFinal("Missing"); err == nil {
		t.Fatalf("expected an error activating an unregistered final target")
	}
}

func TestTargetBuilder_RegistersWithDescriptionAndBody(t *testing.T) {
	r := New()
	var ran bool
	tgt, err := r.NewTargetBuilder("Build").
		Describe("builds the binary").
		Body(func() error { ran = true; return nil }).
		Register()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tgt.Description != "builds the binary" {
		t.Fatalf("expected description, got %q", tgt.Description)
	}
	if err := tgt.Body(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatalf("expected builder-supplied body to run")
	}
}

func TestInstantiateTemplate_HardDependsOnDefaults(t *testing.T) {
	r := New()
	if _, err := r.CreateTarget("fmt", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tmpl := CreateTemplate([]string{"fmt"}, func(parameter string) Body {
		return func() error { return nil }
	})
	tgt, err := r.InstantiateTemplate(tmpl, "build-linux", "linux")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tgt.HardDependencies) != 1 || tgt.HardDependencies[0] != "fmt" {
		t.Fatalf("expected template default dependency, got %v", tgt.HardDependencies)
	}
}

func TestReset_ClearsAllState(t *testing.T) {
	r := New()
	if _, err := r.CreateTarget("Build", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.RecordError("Build", "boom")
	r.AddExecutedTarget("Build", 0)

	r.Reset()

	if len(r.ListTargetNames()) != 0 {
		t.Fatalf("expected no targets after reset")
	}
	if r.HasErrors() {
		t.Fatalf("expected no errors after reset")
	}
	if len(r.ExecutedTimes()) != 0 {
		t.Fatalf("expected no executed times after reset")
	}
}

func TestAddExecutedTarget_AndRecordError_AreConcurrencySafe(t *testing.T) {
	r := New()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			r.AddExecutedTarget("worker", 0)
			r.RecordError("worker", "x")
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if len(r.ExecutedTimes()) != 8 {
		t.Fatalf("expected 8 executed entries, got %d", len(r.ExecutedTimes()))
	}
	if len(r.Errors()) != 8 {
		t.Fatalf("expected 8 error entries, got %d", len(r.Errors()))
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
