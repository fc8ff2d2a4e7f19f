package rebound

import "math"

// Node spacings of the Gauss-Radau quadrature (15th order over a step).
var radauH = [8]float64{
	0.0,
	0.0562625605369221464656521910318,
	0.180240691736892364987579942780,
	0.352624717113169637373907769648,
	0.547153626330555383001448554766,
	0.734210177215410531523210605558,
	0.885320946839095768090359771030,
	0.977520613561287501891174488626,
}

// radauPoly[k] holds the monomial coefficients of Π_{j<k}(u - h_j): the acceleration
// polynomial is built in Newton form from divided differences at the nodes and converted
// to the monomial basis through these, which is what lets it be integrated in closed form.
var radauPoly [8][]float64

func init() {
	radauPoly[0] = []float64{1}
	for k := 1; k < 8; k++ {
		prev := radauPoly[k-1]
		next := make([]float64, k+1)
		for m, c := range prev {
			next[m+1] += c
			next[m] -= c * radauH[k-1]
		}
		radauPoly[k] = next
	}
}

const (
	// ias15Tolerance bounds the magnitude of the highest-order polynomial term relative
	// to the acceleration scale; the step size adapts to hold it.
	ias15Tolerance = 1e-9
	ias15MaxSweeps = 12
	ias15Safety    = 0.85
)

// ias15 is the adaptive 15th-order Gauss-Radau predictor-corrector. Each step
// interpolates the acceleration by a degree-7 polynomial through the Radau nodes,
// iterating node states and divided differences to a fixed point, then integrates the
// polynomial across the whole step. The achieved and the next trial dt live in the
// simulation, so the exact-finish stash captures the full adaptation state.
type ias15 struct {
	pos, acc [][3]float64
	x0, v0   [][3]float64
	dd       [][8][3]float64 // Divided differences of the acceleration at the nodes.
	b        [][8][3]float64 // Monomial coefficients of the acceleration polynomial.
}

func (ia *ias15) ensure(n int) {
	if cap(ia.acc) >= n {
		ia.pos, ia.acc = ia.pos[:n], ia.acc[:n]
		ia.x0, ia.v0 = ia.x0[:n], ia.v0[:n]
		ia.dd, ia.b = ia.dd[:n], ia.b[:n]
		return
	}
	ia.pos = make([][3]float64, n)
	ia.acc = make([][3]float64, n)
	ia.x0 = make([][3]float64, n)
	ia.v0 = make([][3]float64, n)
	ia.dd = make([][8][3]float64, n)
	ia.b = make([][8][3]float64, n)
}

func (ia *ias15) updateB(n int) {
	for i := 0; i < n; i++ {
		ia.b[i] = [8][3]float64{}
		for k := 0; k < 8; k++ {
			for m, c := range radauPoly[k] {
				for d := 0; d < 3; d++ {
					ia.b[i][m][d] += ia.dd[i][k][d] * c
				}
			}
		}
	}
}

// predict sets ia.pos to the positions at node spacing h from the current polynomial.
func (ia *ias15) predict(n int, h, dt float64) {
	for i := 0; i < n; i++ {
		for d := 0; d < 3; d++ {
			sx := 0.0
			hp := h * h
			for m := 0; m < 8; m++ {
				sx += ia.b[i][m][d] * hp / float64((m+1)*(m+2))
				hp *= h
			}
			ia.pos[i][d] = ia.x0[i][d] + ia.v0[i][d]*h*dt + dt*dt*sx
		}
	}
}

func (ia *ias15) forces(s *Simulation) {
	s.gravityAt(ia.pos, ia.acc)
	if s.AdditionalForces != nil {
		s.AdditionalForces(s, ia.acc)
	}
}

func (ia *ias15) Step(s *Simulation) {
	n := len(s.particles)
	ia.ensure(n)
	for i, p := range s.particles {
		ia.x0[i] = [3]float64{p.X, p.Y, p.Z}
		ia.v0[i] = [3]float64{p.VX, p.VY, p.VZ}
		ia.pos[i] = ia.x0[i]
	}
	ia.forces(s)
	accScale := 0.0
	for i := 0; i < n; i++ {
		ia.dd[i] = [8][3]float64{}
		for d := 0; d < 3; d++ {
			ia.dd[i][0][d] = ia.acc[i][d]
			if a := math.Abs(ia.acc[i][d]); a > accScale {
				accScale = a
			}
		}
	}
	if accScale == 0 {
		accScale = 1
	}

	dt := s.dt
	rel := 0.0
	for attempt := 0; attempt < 10; attempt++ {
		for i := 0; i < n; i++ {
			f0 := ia.dd[i][0]
			ia.dd[i] = [8][3]float64{}
			ia.dd[i][0] = f0
		}
		prevTop := math.Inf(1)
		for sweep := 0; sweep < ias15MaxSweeps; sweep++ {
			for node := 1; node < 8; node++ {
				hn := radauH[node]
				ia.updateB(n)
				ia.predict(n, hn, dt)
				ia.forces(s)
				for i := 0; i < n; i++ {
					for d := 0; d < 3; d++ {
						val := ia.acc[i][d]
						for j := 0; j < node; j++ {
							val = (val - ia.dd[i][j][d]) / (hn - radauH[j])
						}
						ia.dd[i][node][d] = val
					}
				}
			}
			top := 0.0
			for i := 0; i < n; i++ {
				for d := 0; d < 3; d++ {
					if a := math.Abs(ia.dd[i][7][d]); a > top {
						top = a
					}
				}
			}
			if math.Abs(top-prevTop) <= 1e-16*accScale {
				break
			}
			prevTop = top
		}
		ia.updateB(n)
		errB := 0.0
		for i := 0; i < n; i++ {
			for d := 0; d < 3; d++ {
				if a := math.Abs(ia.b[i][7][d]); a > errB {
					errB = a
				}
			}
		}
		rel = errB / accScale
		if rel <= ias15Tolerance {
			break
		}
		dt *= math.Max(0.2, ias15Safety*math.Pow(ias15Tolerance/rel, 1./7))
	}

	for i := 0; i < n; i++ {
		p := &s.particles[i]
		x := [3]float64{}
		v := [3]float64{}
		for d := 0; d < 3; d++ {
			sv, sx := 0.0, 0.0
			for m := 0; m < 8; m++ {
				sv += ia.b[i][m][d] / float64(m+1)
				sx += ia.b[i][m][d] / float64((m+1)*(m+2))
			}
			x[d] = ia.x0[i][d] + ia.v0[i][d]*dt + dt*dt*sx
			v[d] = ia.v0[i][d] + dt*sv
		}
		p.X, p.Y, p.Z = x[0], x[1], x[2]
		p.VX, p.VY, p.VZ = v[0], v[1], v[2]
	}
	s.t += dt

	// Next trial step from the magnitude of the highest-order term.
	fac := 1.5
	if rel > 0 {
		fac = ias15Safety * math.Pow(ias15Tolerance/rel, 1./7)
		if fac > 1.5 {
			fac = 1.5
		} else if fac < 0.2 {
			fac = 0.2
		}
	}
	s.dt = dt * fac
}

func (ia *ias15) Reset() {
	ia.dd = ia.dd[:0]
	ia.b = ia.b[:0]
	ia.pos, ia.acc = ia.pos[:0], ia.acc[:0]
	ia.x0, ia.v0 = ia.x0[:0], ia.v0[:0]
}

func (ia *ias15) Clone() Integrator {
	return &ias15{}
}

func (ia *ias15) String() string {
	return "ias15"
}
