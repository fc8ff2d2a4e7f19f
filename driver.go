package rebound

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/soniakeys/meeus/julian"
)

/* Handles the propagation to caller-specified target times. */

// finishStash holds the state that overshot an exact-finish target, so a following
// monotonic Integrate resumes the very same trajectory as if the shortened landing step
// had never been taken.
type finishStash struct {
	gen       uint64
	tFinish   float64
	t, dt     float64
	particles []Particle
	integ     Integrator
	stepCount uint64
}

type checkpoint struct {
	t         float64
	particles []Particle
	integ     Integrator
	stepCount uint64
}

// Integrate advances the simulation to tTarget, subdividing into internal steps. When
// ExactFinish is set the final step is shortened so t lands on tTarget bit-identically,
// and the pre-shortening state is kept so repeated calls with increasing targets
// reproduce a single long integration bitwise. Watchdog checks, the heartbeat callback
// and cancellation all happen at the boundaries between complete steps; on a watchdog
// failure the state is left at the failing step boundary for the caller to inspect.
func (s *Simulation) Integrate(tTarget float64) error {
	start := time.Now()
	defer func() { s.walltime += time.Since(start) }()
	if len(s.particles) == 0 {
		return newErr(KindNoParticles, s.t, "cannot integrate an empty simulation")
	}
	if tTarget == s.t {
		return nil
	}
	if s.dt == 0 {
		panic("simulation dt must be non-zero")
	}
	if s.integ == nil {
		integ, err := newIntegrator(s.integName, s.t)
		if err != nil {
			return err
		}
		s.integ = integ
	}
	if (tTarget-s.t)*s.dt < 0 {
		// Integrate in the direction of the target.
		s.dt = -s.dt
	}
	dir := sign(s.dt)

	// Resume from an exact-finish stash when nothing was mutated in between and the new
	// target lies at or beyond the overshot state.
	if st := s.stash; st != nil && st.gen == s.gen && st.tFinish == s.t && (tTarget-st.t)*dir >= 0 {
		s.particles = st.particles
		s.t = st.t
		s.dt = st.dt
		s.integ = st.integ
		s.stepCount = st.stepCount
		s.recordState()
	}
	s.stash = nil

	if rbConfig().verbose {
		s.LogStatus()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		stopLog := make(chan struct{})
		defer close(stopLog)
		go func() {
			for {
				select {
				case <-ticker.C:
					s.LogStatus()
				case <-stopLog:
					return
				}
			}
		}()
	}

	for (tTarget-s.t)*dir > 0 {
		if atomic.CompareAndSwapInt32(&s.cancelFlag, 1, 0) {
			return newErr(KindInterrupted, s.t, "integration cancelled at a step boundary")
		}
		prev := checkpoint{
			t:         s.t,
			particles: append([]Particle(nil), s.particles...),
			integ:     s.integ.Clone(),
			stepCount: s.stepCount,
		}
		s.integ.Step(s)
		s.stepCount++
		if err := s.postStep(); err != nil {
			return err
		}
		if (tTarget-s.t)*dir > 0 {
			s.recordState()
			continue
		}
		if s.t == tTarget || !s.ExactFinish {
			s.recordState()
			break
		}
		// Overshot the target: stash the full-step state for the next call, rewind to
		// the previous boundary and land exactly.
		s.stash = &finishStash{
			gen:       s.gen,
			tFinish:   tTarget,
			t:         s.t,
			dt:        s.dt,
			particles: s.particles,
			integ:     s.integ,
			stepCount: s.stepCount,
		}
		s.particles = append([]Particle(nil), prev.particles...)
		s.t = prev.t
		s.stepCount = prev.stepCount
		s.integ = prev.integ
		for (tTarget-s.t)*dir > 0 {
			s.dt = tTarget - s.t
			s.integ.Step(s)
			s.stepCount++
			if (tTarget-s.t)*dir <= 0 {
				// Land bit-identically before the boundary checks observe t.
				s.t = tTarget
			}
			if err := s.postStep(); err != nil {
				s.stash = nil
				return err
			}
			s.recordState()
		}
		s.dt = s.stash.dt
		break
	}
	return nil
}

// postStep runs the escape watchdog, the encounter watchdog and the heartbeat callback,
// in that order, at a completed step boundary.
func (s *Simulation) postStep() error {
	if s.ExitMaxDistance > 0 && !math.IsInf(s.ExitMaxDistance, 1) {
		max2 := s.ExitMaxDistance * s.ExitMaxDistance
		for _, p := range s.particles {
			if d2 := p.X*p.X + p.Y*p.Y + p.Z*p.Z; d2 > max2 {
				err := newErr(KindEscape, s.t, "A particle escaped (r>exit_max_distance).")
				err.Hash = p.Hash
				return err
			}
		}
	}
	if s.ExitMinDistance > 0 {
		min2 := s.ExitMinDistance * s.ExitMinDistance
		for i := 0; i < len(s.particles); i++ {
			for j := i + 1; j < len(s.particles); j++ {
				dx := s.particles[j].X - s.particles[i].X
				dy := s.particles[j].Y - s.particles[i].Y
				dz := s.particles[j].Z - s.particles[i].Z
				if d2 := dx*dx + dy*dy + dz*dz; d2 < min2 {
					err := newErr(KindEncounter, s.t, "Two particles had a close encounter (d<exit_min_distance).")
					err.Hash = s.particles[i].Hash
					err.Hash2 = s.particles[j].Hash
					return err
				}
			}
		}
	}
	if s.Heartbeat != nil {
		if err := s.Heartbeat(s); err != nil {
			return err
		}
	}
	return nil
}

// recordState streams the current state to the recorder. Steps that are rewound for an
// exact finish are never recorded; their state reappears when the propagation resumes.
func (s *Simulation) recordState() {
	if s.histChan == nil {
		return
	}
	s.histChan <- SimState{T: s.t, JD: s.jd(), Particles: append([]Particle(nil), s.particles...)}
}

// jd maps the current simulation time onto a Julian date through the configured epoch.
func (s *Simulation) jd() float64 {
	unit := s.TimeUnit
	if unit == 0 {
		unit = 1
	}
	return julian.TimeToJD(s.Epoch) + s.t*unit/86400
}
