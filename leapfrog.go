package rebound

// leapfrog is the fixed-step second-order symplectic integrator in its
// kick-drift-kick form.
type leapfrog struct {
	pos, acc [][3]float64
}

func (lf *leapfrog) Step(s *Simulation) {
	n := len(s.particles)
	if cap(lf.acc) < n {
		lf.acc = make([][3]float64, n)
	}
	lf.acc = lf.acc[:n]
	dt := s.dt

	lf.pos = s.positions(lf.pos)
	s.evalForces(lf.pos, lf.acc)
	for i := range s.particles {
		p := &s.particles[i]
		p.VX += lf.acc[i][0] * dt / 2
		p.VY += lf.acc[i][1] * dt / 2
		p.VZ += lf.acc[i][2] * dt / 2
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.Z += p.VZ * dt
	}
	lf.pos = s.positions(lf.pos)
	s.evalForces(lf.pos, lf.acc)
	for i := range s.particles {
		p := &s.particles[i]
		p.VX += lf.acc[i][0] * dt / 2
		p.VY += lf.acc[i][1] * dt / 2
		p.VZ += lf.acc[i][2] * dt / 2
	}
	s.t += dt
}

func (lf *leapfrog) Reset() {}

func (lf *leapfrog) Clone() Integrator {
	return &leapfrog{}
}

func (lf *leapfrog) String() string {
	return "leapfrog"
}
