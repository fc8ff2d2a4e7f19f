package rebound

import (
	"fmt"

	"github.com/ready-steady/ode/dopri"
)

// dormandPrince is the adaptive Dormand-Prince 5(4) backend. The library adapts its
// internal subdivision within the step interval; the driver still sees whole steps of dt.
type dormandPrince struct {
	pos, acc [][3]float64
}

func (dp *dormandPrince) Step(s *Simulation) {
	n := len(s.particles)
	if cap(dp.pos) < n {
		dp.pos = make([][3]float64, n)
		dp.acc = make([][3]float64, n)
	}
	dp.pos, dp.acc = dp.pos[:n], dp.acc[:n]

	y := make([]float64, 6*n)
	for i, p := range s.particles {
		y[6*i+0] = p.X
		y[6*i+1] = p.Y
		y[6*i+2] = p.Z
		y[6*i+3] = p.VX
		y[6*i+4] = p.VY
		y[6*i+5] = p.VZ
	}
	dxdy := func(x float64, y, f []float64) {
		for i := 0; i < n; i++ {
			dp.pos[i] = [3]float64{y[6*i+0], y[6*i+1], y[6*i+2]}
		}
		s.gravityAt(dp.pos, dp.acc)
		if s.AdditionalForces != nil {
			s.AdditionalForces(s, dp.acc)
		}
		for i := 0; i < n; i++ {
			f[6*i+0] = y[6*i+3]
			f[6*i+1] = y[6*i+4]
			f[6*i+2] = y[6*i+5]
			f[6*i+3] = dp.acc[i][0]
			f[6*i+4] = dp.acc[i][1]
			f[6*i+5] = dp.acc[i][2]
		}
	}
	integrator, _ := dopri.New(dopri.DefaultConfig())
	values, _, err := integrator.Compute(dxdy, y, []float64{s.t, s.t + s.dt})
	if err != nil {
		panic(fmt.Errorf("dopri integration failed: %s", err))
	}
	final := values[len(values)-6*n:]
	for i := range s.particles {
		p := &s.particles[i]
		p.X = final[6*i+0]
		p.Y = final[6*i+1]
		p.Z = final[6*i+2]
		p.VX = final[6*i+3]
		p.VY = final[6*i+4]
		p.VZ = final[6*i+5]
	}
	s.t += s.dt
}

func (dp *dormandPrince) Reset() {}

func (dp *dormandPrince) Clone() Integrator {
	return &dormandPrince{}
}

func (dp *dormandPrince) String() string {
	return "dopri"
}
