package rebound

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	sim := NewSimulation()
	sim.G = 2.5
	sim.SetDT(0.02)
	if err := sim.SetIntegrator("whfast"); err != nil {
		t.Fatal(err)
	}
	sim.ExitMaxDistance = 50
	sim.ExitMinDistance = 0.1
	sim.Add(Particle{M: 1, Radius: 0.005, Name: "sun"})
	if err := sim.AddOrbit(OrbitParams{M: 1e-3, A: 1.3, E: 0.21, Inc: 0.4, Name: "planet"}); err != nil {
		t.Fatal(err)
	}
	sim.Add(Particle{X: 3, VY: 0.4, Hash: 77})

	var buf bytes.Buffer
	if err := sim.Save(&buf); err != nil {
		t.Fatal(err)
	}

	restored := NewSimulation()
	if err := restored.Load(&buf); err != nil {
		t.Fatal(err)
	}
	if restored.G != 2.5 || restored.DT() != 0.02 {
		t.Fatalf("scalars did not round-trip: G=%g dt=%g", restored.G, restored.DT())
	}
	if restored.IntegratorName() != "whfast" {
		t.Fatalf("integrator tag did not round-trip: %s", restored.IntegratorName())
	}
	if restored.ExitMaxDistance != 50 || restored.ExitMinDistance != 0.1 {
		t.Fatalf("watchdog radii did not round-trip: %g %g", restored.ExitMaxDistance, restored.ExitMinDistance)
	}
	if restored.N() != sim.N() {
		t.Fatalf("particle count did not round-trip: %d", restored.N())
	}
	for i := range sim.Particles() {
		a := sim.Particles()[i]
		b := restored.Particles()[i]
		if a.M != b.M || a.Radius != b.Radius || a.X != b.X || a.VY != b.VY || a.Hash != b.Hash {
			t.Fatalf("particle %d did not round-trip:\nsaved    %+v\nrestored %+v", i, a, b)
		}
	}
	// Names are not persisted but string identities still resolve through HashName.
	if _, err := restored.ParticleByName("planet"); err != nil {
		t.Fatalf("string identity lost across serialization: %v", err)
	}
	if _, err := restored.ParticleByHash(77); err != nil {
		t.Fatalf("explicit hash lost across serialization: %v", err)
	}
	// A fresh add must not collide with any restored hash.
	if err := restored.Add(Particle{M: 1}); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotBadMagic(t *testing.T) {
	sim := NewSimulation()
	if err := sim.Load(bytes.NewReader([]byte("this is not a snapshot"))); err == nil {
		t.Fatal("expected an error for a bad magic tag")
	}
}

func TestSnapshotFile(t *testing.T) {
	sim := NewSimulation()
	sim.Add(Particle{M: 1, Name: "sun"})
	sim.AddOrbit(OrbitParams{A: 1, Name: "earth"})
	path := filepath.Join(t.TempDir(), "sim.bin")
	if err := sim.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	restored, err := LoadSimulation(path)
	if err != nil {
		t.Fatal(err)
	}
	if restored.N() != 2 {
		t.Fatalf("expected 2 particles, got %d", restored.N())
	}
	if _, err := restored.ParticleByName("earth"); err != nil {
		t.Fatal(err)
	}
}
