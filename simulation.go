package rebound

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/kit/log"
)

// Version of the engine, reported by Status.
const Version = "1.2.0"

/* Owns the particles and the propagation configuration. */

// Simulation owns its particles exclusively: views obtained by index or hash read through
// to the store and stay valid only until the next mutating call. Hash-based views remain
// resolvable across removals of other particles; index-based ones do not.
type Simulation struct {
	G                float64 // Gravitational constant, default 1.
	ExitMaxDistance  float64 // Escape radius from the inertial origin; zero disables.
	ExitMinDistance  float64 // Close-encounter radius; zero disables.
	ExactFinish      bool    // Shorten the final step so t lands exactly on the target.
	AdditionalForces func(s *Simulation, acc [][3]float64)
	Heartbeat        func(s *Simulation) error // Called after each completed step.
	Epoch            time.Time                 // Calendar epoch of t=0, used by the exporter.
	TimeUnit         float64                   // Seconds per simulation time unit, exporter only.

	particles   []Particle
	hashToIndex map[uint64]int
	usedHashes  map[uint64]struct{} // Every hash ever assigned; never reissued.
	nextHash    uint64

	t, dt      float64
	integName  string
	integ      Integrator
	gravity    GravityMode
	gen        uint64 // Mutation generation, bumps on any store or selector change.
	stash      *finishStash
	stepCount  uint64
	walltime   time.Duration
	cancelFlag int32

	histChan chan SimState
	exportWG sync.WaitGroup

	logger kitlog.Logger
}

// SimLogInit initializes the logger.
func SimLogInit(name string) kitlog.Logger {
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	klog = kitlog.With(klog, "sim", name)
	return klog
}

// NewSimulation returns a new empty simulation with the default configuration.
func NewSimulation() *Simulation {
	cfg := rbConfig()
	return &Simulation{
		G:           1,
		ExactFinish: true,
		Epoch:       time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		hashToIndex: make(map[uint64]int),
		usedHashes:  make(map[uint64]struct{}),
		nextHash:    1,
		dt:          0.001,
		integName:   cfg.defaultIntegrator,
		gravity:     GravityBasic,
		logger:      SimLogInit("rebound"),
	}
}

// mutated registers a store or configuration change: stale indices, the exact-finish
// stash and the integrator scratch are all invalidated.
func (s *Simulation) mutated() {
	s.gen++
	s.stash = nil
	if s.integ != nil {
		s.integ.Reset()
	}
}

func (s *Simulation) assignHash(p *Particle) error {
	if p.Hash == 0 && p.Name != "" {
		p.Hash = HashName(p.Name)
	}
	if p.Hash == 0 {
		for {
			h := s.nextHash
			s.nextHash++
			if _, taken := s.usedHashes[h]; !taken {
				p.Hash = h
				break
			}
		}
	}
	if _, live := s.hashToIndex[p.Hash]; live {
		return newErr(KindDuplicateHash, s.t, "hash %d is already in use", p.Hash)
	}
	return nil
}

// Add appends a particle given by its Cartesian state. A zero Hash with a non-empty Name
// derives the hash from the name; a zero Hash and empty Name gets a fresh synthetic hash.
// The add is transactional: on failure the store is unchanged.
func (s *Simulation) Add(p Particle) error {
	if err := s.assignHash(&p); err != nil {
		return err
	}
	s.hashToIndex[p.Hash] = len(s.particles)
	s.usedHashes[p.Hash] = struct{}{}
	s.particles = append(s.particles, p)
	s.mutated()
	return nil
}

// AddOrbit appends a particle given by its orbital elements around a primary (the first
// particle unless op.Primary names one by hash).
func (s *Simulation) AddOrbit(op OrbitParams) error {
	if len(s.particles) == 0 {
		return newErr(KindNoParticles, s.t, "orbital elements need a primary but the simulation is empty")
	}
	primary := &s.particles[0]
	if op.Primary != 0 {
		idx, found := s.hashToIndex[op.Primary]
		if !found {
			return newErr(KindNotFound, s.t, "primary hash %d does not resolve", op.Primary)
		}
		primary = &s.particles[idx]
	}
	μ := s.G * (primary.M + op.M)
	R, V, err := coe2rv(op, μ, s.t)
	if err != nil {
		return err
	}
	return s.Add(Particle{
		M:      op.M,
		Radius: op.Radius,
		X:      primary.X + R[0],
		Y:      primary.Y + R[1],
		Z:      primary.Z + R[2],
		VX:     primary.VX + V[0],
		VY:     primary.VY + V[1],
		VZ:     primary.VZ + V[2],
		Hash:   op.Hash,
		Name:   op.Name,
	})
}

// Remove removes the particle at the given index, compacting the store. Surviving
// particles keep their hashes and their relative ordering.
func (s *Simulation) Remove(i int) error {
	if i < 0 || i >= len(s.particles) {
		return newErr(KindNotFound, s.t, "index %d out of range (N=%d)", i, len(s.particles))
	}
	delete(s.hashToIndex, s.particles[i].Hash)
	s.particles = append(s.particles[:i], s.particles[i+1:]...)
	for j := i; j < len(s.particles); j++ {
		s.hashToIndex[s.particles[j].Hash] = j
	}
	s.mutated()
	return nil
}

// RemoveHash removes the particle with the given hash.
func (s *Simulation) RemoveHash(h uint64) error {
	idx, found := s.hashToIndex[h]
	if !found {
		return newErr(KindNotFound, s.t, "hash %d does not resolve", h)
	}
	return s.Remove(idx)
}

// ParticleByIndex returns a read-through view of the i-th particle. The view is
// invalidated by the next mutating call.
func (s *Simulation) ParticleByIndex(i int) (*Particle, error) {
	if i < 0 || i >= len(s.particles) {
		return nil, newErr(KindNotFound, s.t, "index %d out of range (N=%d)", i, len(s.particles))
	}
	return &s.particles[i], nil
}

// ParticleByHash returns a read-through view of the particle with the given hash.
func (s *Simulation) ParticleByHash(h uint64) (*Particle, error) {
	idx, found := s.hashToIndex[h]
	if !found {
		return nil, newErr(KindNotFound, s.t, "hash %d does not resolve", h)
	}
	return &s.particles[idx], nil
}

// ParticleByName resolves a string label through HashName.
func (s *Simulation) ParticleByName(name string) (*Particle, error) {
	return s.ParticleByHash(HashName(name))
}

// Particles returns the live particle slice. Treat it as read-only and valid only until
// the next mutating call.
func (s *Simulation) Particles() []Particle {
	return s.particles
}

// N returns the current particle count.
func (s *Simulation) N() int {
	return len(s.particles)
}

// T returns the current simulation time.
func (s *Simulation) T() float64 {
	return s.t
}

// DT returns the current time step.
func (s *Simulation) DT() float64 {
	return s.dt
}

// SetDT sets the time step (negative integrates backward).
func (s *Simulation) SetDT(dt float64) {
	s.dt = dt
	s.mutated()
}

// SetIntegrator selects the integrator by its symbolic name.
func (s *Simulation) SetIntegrator(name string) error {
	if _, known := integratorRegistry[name]; !known {
		return newErr(KindUnknownIntegrator, s.t, "no integrator named %q", name)
	}
	s.integName = name
	s.integ = nil
	s.mutated()
	return nil
}

// IntegratorName returns the selected integrator identifier.
func (s *Simulation) IntegratorName() string {
	return s.integName
}

// SetGravity selects the force evaluator variant.
func (s *Simulation) SetGravity(mode GravityMode) {
	s.gravity = mode
	s.mutated()
}

// StepCount returns the number of completed internal steps.
func (s *Simulation) StepCount() uint64 {
	return s.stepCount
}

// Walltime returns the cumulative wall-clock time spent inside Integrate.
func (s *Simulation) Walltime() time.Duration {
	return s.walltime
}

// Cancel requests a cooperative stop of the running integration at the next step boundary.
func (s *Simulation) Cancel() {
	atomic.StoreInt32(&s.cancelFlag, 1)
}

// COM returns the center of mass of the system as a pseudo-particle.
func (s *Simulation) COM() (Particle, error) {
	if len(s.particles) == 0 {
		return Particle{}, newErr(KindNoParticles, s.t, "cannot compute the center of mass of an empty simulation")
	}
	var com Particle
	for _, p := range s.particles {
		com.M += p.M
		com.X += p.M * p.X
		com.Y += p.M * p.Y
		com.Z += p.M * p.Z
		com.VX += p.M * p.VX
		com.VY += p.M * p.VY
		com.VZ += p.M * p.VZ
	}
	if com.M == 0 {
		return Particle{}, newErr(KindNoParticles, s.t, "cannot compute the center of mass of a massless system")
	}
	com.X /= com.M
	com.Y /= com.M
	com.Z /= com.M
	com.VX /= com.M
	com.VY /= com.M
	com.VZ /= com.M
	return com, nil
}

// MoveToCOM shifts all positions and velocities into the barycentric frame. Idempotent
// modulo floating-point noise.
func (s *Simulation) MoveToCOM() error {
	com, err := s.COM()
	if err != nil {
		return err
	}
	for i := range s.particles {
		s.particles[i].X -= com.X
		s.particles[i].Y -= com.Y
		s.particles[i].Z -= com.Z
		s.particles[i].VX -= com.VX
		s.particles[i].VY -= com.VY
		s.particles[i].VZ -= com.VZ
	}
	s.mutated()
	return nil
}

// Energy returns the total mechanical energy of the system (kinetic plus pairwise
// gravitational potential).
func (s *Simulation) Energy() float64 {
	e := 0.0
	for i, p := range s.particles {
		e += 0.5 * p.M * (p.VX*p.VX + p.VY*p.VY + p.VZ*p.VZ)
		for j := i + 1; j < len(s.particles); j++ {
			q := s.particles[j]
			dx, dy, dz := q.X-p.X, q.Y-p.Y, q.Z-p.Z
			e -= s.G * p.M * q.M / math.Sqrt(dx*dx+dy*dy+dz*dz)
		}
	}
	return e
}

// Status returns the informational banner: version, selectors and the scalar state.
func (s *Simulation) Status() string {
	return fmt.Sprintf("---------------------------------\n"+
		"REBOUND version:     %s\n"+
		"Integrator:          %s\n"+
		"Gravity:             %s\n"+
		"N:                   %d\n"+
		"t:                   %g\n"+
		"dt:                  %g\n"+
		"G:                   %g\n"+
		"Steps done:          %d\n"+
		"---------------------------------",
		Version, s.integName, s.gravity, len(s.particles), s.t, s.dt, s.G, s.stepCount)
}

// LogStatus logs the scalar state of the propagation.
func (s *Simulation) LogStatus() {
	s.logger.Log("level", "info", "subsys", "sim", "t", s.t, "dt", s.dt, "N", len(s.particles), "steps", s.stepCount)
}
