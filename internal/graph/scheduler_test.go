package graph

import "testing"

func waveOf(t *testing.T, waves []Wave, name string) int {
	t.Helper()
	for i, w := range waves {
		for _, n := range w {
			if n == name {
				return i
			}
		}
	}
	t.Fatalf("%s not found in any wave", name)
	return -1
}

func TestDetermineBuildOrder_LinearChain(t *testing.T) {
	// S1: C -> B -> A (hard). Wave order must run A before B before C.
	r := newTargets("A", "B", "C")
	adm := NewAdmission(r)
	if err := adm.AddHardDependencyEnd("C", "B"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adm.AddHardDependencyEnd("B", "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched := NewScheduler(r)
	waves, err := sched.DetermineBuildOrder("C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d: %v", len(waves), waves)
	}
	if waveOf(t, waves, "A") >= waveOf(t, waves, "B") {
		t.Fatalf("expected A's wave before B's wave")
	}
	if waveOf(t, waves, "B") >= waveOf(t, waves, "C") {
		t.Fatalf("expected B's wave before C's wave")
	}
}

func TestDetermineBuildOrder_DiamondParallel(t *testing.T) {
	// S2: C depends on B1, B2; B1, B2 depend on A. Waves = [{A}, {B1,B2}, {C}].
	r := newTargets("A", "B1", "B2", "C")
	adm := NewAdmission(r)
	if err := adm.AddHardDependencies("C", []string{"B1", "B2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adm.AddHardDependencyEnd("B1", "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adm.AddHardDependencyEnd("B2", "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched := NewScheduler(r)
	waves, err := sched.DetermineBuildOrder("C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d: %v", len(waves), waves)
	}

	aWave := waveOf(t, waves, "A")
	b1Wave := waveOf(t, waves, "B1")
	b2Wave := waveOf(t, waves, "B2")
	cWave := waveOf(t, waves, "C")

	if b1Wave != b2Wave {
		t.Fatalf("expected B1 and B2 in the same wave (mutually independent)")
	}
	if aWave >= b1Wave || b1Wave >= cWave {
		t.Fatalf("expected wave order A, then B1/B2, then C; got A=%d B1=%d B2=%d C=%d", aWave, b1Wave, b2Wave, cWave)
	}
}

func TestDetermineBuildOrder_SoftEdgeInsideHardClosureRespected(t *testing.T) {
	// S4: A hard-depends on B and X; B soft-depends on X. X must run
	// before B.
	r := newTargets("A", "B", "X")
	adm := NewAdmission(r)
	if err := adm.AddHardDependencies("A", []string{"B", "X"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adm.AddSoftDependencyEnd("B", "X"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched := NewScheduler(r)
	waves, err := sched.DetermineBuildOrder("A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waveOf(t, waves, "X") >= waveOf(t, waves, "B") {
		t.Fatalf("expected X's wave before B's wave due to the activated soft edge")
	}
}

func TestDetermineBuildOrder_WaveIndependence(t *testing.T) {
	r := newTargets("A", "B1", "B2", "C")
	adm := NewAdmission(r)
	if err := adm.AddHardDependencies("C", []string{"B1", "B2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adm.AddHardDependencyEnd("B1", "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adm.AddHardDependencyEnd("B2", "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched := NewScheduler(r)
	waves, err := sched.DetermineBuildOrder("C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, wave := range waves {
		for _, name := range wave {
			tgt, err := r.GetTarget(name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, dep := range tgt.HardDependencies {
				for _, other := range wave {
					if lower(other) == lower(dep) {
						t.Fatalf("wave %v contains both %s and its dependency %s", wave, name, dep)
					}
				}
			}
		}
	}
}
