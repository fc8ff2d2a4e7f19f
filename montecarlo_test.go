package rebound

import (
	"math/rand"
	"testing"
)

func TestPowerlawBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	for _, slope := range []float64{-2.5, -1, -0.5, 0, 1.5} {
		for i := 0; i < 1000; i++ {
			v := Powerlaw(rng, 0.5, 4, slope)
			if v < 0.5 || v > 4 {
				t.Fatalf("slope %g draw out of bounds: %g", slope, v)
			}
		}
	}
	for i := 0; i < 1000; i++ {
		if v := Rayleigh(rng, 0.05); v < 0 {
			t.Fatalf("negative Rayleigh draw: %g", v)
		}
	}
}

func TestPowerlawDisk(t *testing.T) {
	sim := NewSimulation()
	sim.Add(Particle{M: 1})
	if err := NewPowerlawDisk(sim, 50, 1, 10, -1.5, 0.01, 0.005, 42); err != nil {
		t.Fatal(err)
	}
	if sim.N() != 51 {
		t.Fatalf("expected 51 particles, got %d", sim.N())
	}
	for i := 1; i < sim.N(); i++ {
		p, _ := sim.ParticleByIndex(i)
		if p.M != 0 {
			t.Fatalf("disk particles must be massless, particle %d has m=%g", i, p.M)
		}
		o, err := sim.OrbitOf(p.Hash, 0)
		if err != nil {
			t.Fatal(err)
		}
		if o.A < 0.9 || o.A > 11 {
			t.Fatalf("disk particle %d outside the sampled range: a=%g", i, o.A)
		}
		if o.E >= 1 {
			t.Fatalf("disk particle %d unbound: e=%g", i, o.E)
		}
	}
}

func TestPowerlawDiskReproducible(t *testing.T) {
	build := func() *Simulation {
		sim := NewSimulation()
		sim.Add(Particle{M: 1})
		if err := NewPowerlawDisk(sim, 20, 1, 5, -1, 0.02, 0.01, 1234); err != nil {
			t.Fatal(err)
		}
		return sim
	}
	a, b := build(), build()
	for i := range a.Particles() {
		pa, pb := a.Particles()[i], b.Particles()[i]
		if pa.X != pb.X || pa.Y != pb.Y || pa.Z != pb.Z || pa.VX != pb.VX {
			t.Fatalf("same seed produced different particles at index %d", i)
		}
	}
}

func TestPowerlawDiskNeedsPrimary(t *testing.T) {
	sim := NewSimulation()
	if err := NewPowerlawDisk(sim, 5, 1, 2, -1, 0.01, 0.01, 7); !IsKind(err, KindNoParticles) {
		t.Fatalf("expected NoParticles, got %v", err)
	}
}

func TestGaussianCluster(t *testing.T) {
	sim := NewSimulation()
	if err := NewGaussianCluster(sim, 100, 0.01, 1, 0.1, 99); err != nil {
		t.Fatal(err)
	}
	if sim.N() != 100 {
		t.Fatalf("expected 100 stars, got %d", sim.N())
	}
	for _, p := range sim.Particles() {
		if p.M != 0.01 {
			t.Fatalf("wrong stellar mass: %g", p.M)
		}
	}
	// Same seed, same cluster.
	other := NewSimulation()
	if err := NewGaussianCluster(other, 100, 0.01, 1, 0.1, 99); err != nil {
		t.Fatal(err)
	}
	for i := range sim.Particles() {
		if sim.Particles()[i].X != other.Particles()[i].X {
			t.Fatalf("same seed produced different clusters at index %d", i)
		}
	}
}
