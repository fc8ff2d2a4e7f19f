package rebound

import (
	"math"
	"testing"
)

func newKeplerSim(t *testing.T) *Simulation {
	t.Helper()
	sim := NewSimulation()
	if err := sim.SetIntegrator("leapfrog"); err != nil {
		t.Fatal(err)
	}
	sim.SetDT(1e-3)
	if err := sim.Add(Particle{M: 1, Name: "sun"}); err != nil {
		t.Fatal(err)
	}
	return sim
}

func TestKeplerOneOrbit(t *testing.T) {
	sim := newKeplerSim(t)
	if err := sim.AddOrbit(OrbitParams{A: 1, Name: "earth"}); err != nil {
		t.Fatal(err)
	}
	if err := sim.AddOrbit(OrbitParams{A: 1.52, Name: "mars"}); err != nil {
		t.Fatal(err)
	}
	if err := sim.MoveToCOM(); err != nil {
		t.Fatal(err)
	}
	if err := sim.Integrate(2 * math.Pi); err != nil {
		t.Fatal(err)
	}
	if sim.T() != 2*math.Pi {
		t.Fatalf("exact finish missed the target: t=%.17f", sim.T())
	}
	earth, err := sim.ParticleByName("earth")
	if err != nil {
		t.Fatal(err)
	}
	// One full period in default units with G=1: back to the starting point.
	if earth.X < 0.999 || earth.X > 1.001 {
		t.Fatalf("earth did not return to x=1 after one period: x=%.6f", earth.X)
	}
	if math.Abs(earth.Y) > 0.001 {
		t.Fatalf("earth did not return to y=0 after one period: y=%.6f", earth.Y)
	}
}

func TestIntegrateNoOp(t *testing.T) {
	sim := newKeplerSim(t)
	if err := sim.AddOrbit(OrbitParams{A: 1, Name: "earth"}); err != nil {
		t.Fatal(err)
	}
	if err := sim.Integrate(1.5); err != nil {
		t.Fatal(err)
	}
	before := append([]Particle(nil), sim.Particles()...)
	steps := sim.StepCount()
	if err := sim.Integrate(1.5); err != nil {
		t.Fatal(err)
	}
	if sim.StepCount() != steps {
		t.Fatalf("integrate to the current time must be a no-op, took %d steps", sim.StepCount()-steps)
	}
	for i, p := range sim.Particles() {
		if p != before[i] {
			t.Fatalf("particle %d changed during a no-op integrate", i)
		}
	}
}

func TestMonotonicDeterminism(t *testing.T) {
	// integrate(5); integrate(10) must be bitwise identical to a single integrate(10).
	build := func() *Simulation {
		sim := newKeplerSim(t)
		if err := sim.AddOrbit(OrbitParams{M: 1e-3, A: 1, Name: "earth"}); err != nil {
			t.Fatal(err)
		}
		if err := sim.AddOrbit(OrbitParams{M: 3e-4, A: 1.52, E: 0.09, Name: "mars"}); err != nil {
			t.Fatal(err)
		}
		if err := sim.MoveToCOM(); err != nil {
			t.Fatal(err)
		}
		return sim
	}
	single := build()
	if err := single.Integrate(10); err != nil {
		t.Fatal(err)
	}
	split := build()
	if err := split.Integrate(5); err != nil {
		t.Fatal(err)
	}
	if err := split.Integrate(10); err != nil {
		t.Fatal(err)
	}
	if single.T() != split.T() {
		t.Fatalf("times differ: %v vs %v", single.T(), split.T())
	}
	for i := range single.Particles() {
		a := single.Particles()[i]
		b := split.Particles()[i]
		if a.X != b.X || a.Y != b.Y || a.Z != b.Z || a.VX != b.VX || a.VY != b.VY || a.VZ != b.VZ {
			t.Fatalf("particle %d diverged:\nsingle %+v\nsplit  %+v", i, a, b)
		}
	}
}

func TestEscapeHandling(t *testing.T) {
	sim := newKeplerSim(t)
	if err := sim.Add(Particle{X: 0.4, VX: 5.0, Name: "mercury"}); err != nil {
		t.Fatal(err)
	}
	if err := sim.AddOrbit(OrbitParams{A: 0.7, Name: "venus"}); err != nil {
		t.Fatal(err)
	}
	if err := sim.AddOrbit(OrbitParams{A: 1.0, Name: "earth"}); err != nil {
		t.Fatal(err)
	}
	sim.ExitMaxDistance = 50

	escapes := 0
	tMax := 20 * 2 * math.Pi
	for i := 1; i <= 1000; i++ {
		target := tMax * float64(i) / 1000
		for {
			err := sim.Integrate(target)
			if err == nil {
				break
			}
			serr, ok := err.(*Error)
			if !ok || serr.Kind != KindEscape {
				t.Fatal(err)
			}
			if serr.T != sim.T() {
				t.Fatalf("escape error carries t=%g but the simulation is at %g", serr.T, sim.T())
			}
			// Locate the offender ourselves and check it matches the reported hash.
			removed := false
			for _, p := range sim.Particles() {
				if p.X*p.X+p.Y*p.Y+p.Z*p.Z > 50*50 {
					if p.Hash != serr.Hash {
						t.Fatalf("escape error names hash %d but particle %d is outside", serr.Hash, p.Hash)
					}
					if err := sim.RemoveHash(p.Hash); err != nil {
						t.Fatal(err)
					}
					removed = true
					break
				}
			}
			if !removed {
				t.Fatalf("escape reported at t=%g but no particle is beyond the exit distance", serr.T)
			}
			escapes++
		}
	}
	if escapes != 1 {
		t.Fatalf("expected exactly one escape (mercury), got %d", escapes)
	}
	if sim.N() != 3 {
		t.Fatalf("expected N=3 after removing the escaper, got %d", sim.N())
	}
	if _, err := sim.ParticleByName("mercury"); !IsKind(err, KindNotFound) {
		t.Fatal("mercury should be gone")
	}
	venus, err := sim.ParticleByName("venus")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(venus.X) > 1.1 {
		t.Fatalf("venus unbound after the escape event: x=%g", venus.X)
	}
}

func TestEncounterDetected(t *testing.T) {
	sim := newKeplerSim(t)
	if err := sim.Add(Particle{X: 1, VX: -1, Name: "comet"}); err != nil {
		t.Fatal(err)
	}
	sim.ExitMinDistance = 0.5
	err := sim.Integrate(2)
	serr, ok := err.(*Error)
	if !ok || serr.Kind != KindEncounter {
		t.Fatalf("expected Encounter, got %v", err)
	}
	if serr.T <= 0 || serr.T != sim.T() {
		t.Fatalf("encounter error carries t=%g, sim at %g", serr.T, sim.T())
	}
	pair := map[uint64]bool{serr.Hash: true, serr.Hash2: true}
	if !pair[HashName("sun")] || !pair[HashName("comet")] {
		t.Fatalf("encounter error does not carry the pair: %d %d", serr.Hash, serr.Hash2)
	}
}

func TestInterrupted(t *testing.T) {
	sim := newKeplerSim(t)
	if err := sim.AddOrbit(OrbitParams{A: 1}); err != nil {
		t.Fatal(err)
	}
	sim.Cancel()
	err := sim.Integrate(1)
	if !IsKind(err, KindInterrupted) {
		t.Fatalf("expected Interrupted, got %v", err)
	}
	if sim.T() != 0 {
		t.Fatalf("cancellation before the first step must not advance time: t=%g", sim.T())
	}
	// The flag is consumed: the next call proceeds.
	if err := sim.Integrate(0.1); err != nil {
		t.Fatal(err)
	}
	if sim.T() != 0.1 {
		t.Fatalf("expected t=0.1 after resuming, got %g", sim.T())
	}
}

func TestHeartbeatAbort(t *testing.T) {
	sim := newKeplerSim(t)
	if err := sim.AddOrbit(OrbitParams{A: 1}); err != nil {
		t.Fatal(err)
	}
	steps := 0
	sim.Heartbeat = func(s *Simulation) error {
		steps++
		if steps == 10 {
			return newErr(KindCollision, s.T(), "resolved a collision externally")
		}
		return nil
	}
	err := sim.Integrate(1)
	if !IsKind(err, KindCollision) {
		t.Fatalf("expected the heartbeat error to surface, got %v", err)
	}
	if sim.StepCount() != 10 {
		t.Fatalf("expected the abort at the 10th step boundary, got %d", sim.StepCount())
	}
}

func TestIntegrateEmpty(t *testing.T) {
	sim := NewSimulation()
	if err := sim.Integrate(1); !IsKind(err, KindNoParticles) {
		t.Fatalf("expected NoParticles, got %v", err)
	}
}

func TestUnknownIntegratorSurfaces(t *testing.T) {
	sim := NewSimulation()
	sim.Add(Particle{M: 1})
	sim.integName = "mercurius" // bypass the setter on purpose
	if err := sim.Integrate(1); !IsKind(err, KindUnknownIntegrator) {
		t.Fatalf("expected UnknownIntegrator, got %v", err)
	}
}

func TestBackwardIntegration(t *testing.T) {
	sim := newKeplerSim(t)
	if err := sim.AddOrbit(OrbitParams{A: 1, Name: "earth"}); err != nil {
		t.Fatal(err)
	}
	if err := sim.Integrate(-1); err != nil {
		t.Fatal(err)
	}
	if sim.T() != -1 {
		t.Fatalf("backward integration missed the target: t=%g", sim.T())
	}
}

func TestExactFinishDisabled(t *testing.T) {
	sim := newKeplerSim(t)
	sim.ExactFinish = false
	if err := sim.AddOrbit(OrbitParams{A: 1}); err != nil {
		t.Fatal(err)
	}
	if err := sim.Integrate(0.0105); err != nil {
		t.Fatal(err)
	}
	// The driver stops at the first step boundary at or past the target.
	if sim.T() < 0.0105 {
		t.Fatalf("stopped short of the target: t=%g", sim.T())
	}
	if sim.T() > 0.0105+sim.DT() {
		t.Fatalf("overshot by more than one step: t=%g", sim.T())
	}
}
