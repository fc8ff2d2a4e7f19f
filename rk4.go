package rebound

import (
	"github.com/ChristopherRabotin/ode"
)

// rk4 is the fixed-step fourth-order Runge-Kutta backend. Each Step drives exactly one
// iteration of the ode package's RK4 solver through its Integrable contract.
type rk4 struct{}

func (r *rk4) Step(s *Simulation) {
	ad := &rk4Adapter{s: s}
	ode.NewRK4(s.t, s.dt, ad).Solve()
	s.t += s.dt
}

func (r *rk4) Reset() {}

func (r *rk4) Clone() Integrator {
	return &rk4{}
}

func (r *rk4) String() string {
	return "rk4"
}

// rk4Adapter exposes the particle array as a flat ODE state vector (x, y, z, vx, vy, vz
// per particle) and stops the solver after a single iteration.
type rk4Adapter struct {
	s        *Simulation
	pos, acc [][3]float64
	calls    int
}

// GetState returns the flattened state vector.
func (a *rk4Adapter) GetState() (state []float64) {
	state = make([]float64, 6*len(a.s.particles))
	for i, p := range a.s.particles {
		state[6*i+0] = p.X
		state[6*i+1] = p.Y
		state[6*i+2] = p.Z
		state[6*i+3] = p.VX
		state[6*i+4] = p.VY
		state[6*i+5] = p.VZ
	}
	return
}

// SetState writes the updated state back into the particle array.
func (a *rk4Adapter) SetState(t float64, state []float64) {
	for i := range a.s.particles {
		p := &a.s.particles[i]
		p.X = state[6*i+0]
		p.Y = state[6*i+1]
		p.Z = state[6*i+2]
		p.VX = state[6*i+3]
		p.VY = state[6*i+4]
		p.VZ = state[6*i+5]
	}
}

// Stop halts the solver after one iteration; the driver owns the step loop.
func (a *rk4Adapter) Stop(t float64) bool {
	a.calls++
	return a.calls > 1
}

// Func is the equation of motion: position derivatives are the velocities, velocity
// derivatives the gravitational accelerations at the trial state plus any additional
// forces.
func (a *rk4Adapter) Func(t float64, f []float64) (fDot []float64) {
	n := len(a.s.particles)
	if cap(a.pos) < n {
		a.pos = make([][3]float64, n)
		a.acc = make([][3]float64, n)
	}
	a.pos, a.acc = a.pos[:n], a.acc[:n]
	for i := 0; i < n; i++ {
		a.pos[i] = [3]float64{f[6*i+0], f[6*i+1], f[6*i+2]}
	}
	a.s.gravityAt(a.pos, a.acc)
	if a.s.AdditionalForces != nil {
		a.s.AdditionalForces(a.s, a.acc)
	}
	fDot = make([]float64, 6*n)
	for i := 0; i < n; i++ {
		fDot[6*i+0] = f[6*i+3]
		fDot[6*i+1] = f[6*i+4]
		fDot[6*i+2] = f[6*i+5]
		fDot[6*i+3] = a.acc[i][0]
		fDot[6*i+4] = a.acc[i][1]
		fDot[6*i+5] = a.acc[i][2]
	}
	return
}
