package rebound

import (
	"math"
)

// whfast is a Wisdom-Holman splitting in heliocentric coordinates: interaction kicks at
// the step boundaries, exact Kepler drifts about the first particle in between. The first
// particle is the inertial anchor, so use it in the barycentric frame. Additional forces
// invalidate the splitting; they are folded into the kick and a warning is logged once.
type whfast struct {
	acc    [][3]float64
	warned bool
}

func (wh *whfast) Step(s *Simulation) {
	if s.AdditionalForces != nil && !wh.warned {
		s.logger.Log("level", "warning", "subsys", "integrator", "integrator", "whfast",
			"message", "additional forces invalidate the Kepler splitting, folding them into the interaction kick")
		wh.warned = true
	}
	dt := s.dt
	wh.kick(s, dt/2)
	wh.drift(s, dt)
	wh.kick(s, dt/2)
	s.t += dt
}

// kick applies the interaction accelerations: planet-planet attraction plus the indirect
// term from the planets pulling on the primary.
func (wh *whfast) kick(s *Simulation, dt float64) {
	n := len(s.particles)
	if n < 2 {
		return
	}
	if cap(wh.acc) < n {
		wh.acc = make([][3]float64, n)
	}
	wh.acc = wh.acc[:n]
	for i := range wh.acc {
		wh.acc[i] = [3]float64{}
	}
	p0 := s.particles[0]
	for i := 1; i < n; i++ {
		pi := s.particles[i]
		rix, riy, riz := pi.X-p0.X, pi.Y-p0.Y, pi.Z-p0.Z
		for j := 1; j < n; j++ {
			if j == i {
				continue
			}
			pj := s.particles[j]
			rjx, rjy, rjz := pj.X-p0.X, pj.Y-p0.Y, pj.Z-p0.Z
			dx, dy, dz := rjx-rix, rjy-riy, rjz-riz
			d2 := dx*dx + dy*dy + dz*dz
			direct := s.G * pj.M / (d2 * math.Sqrt(d2))
			rj2 := rjx*rjx + rjy*rjy + rjz*rjz
			indirect := s.G * pj.M / (rj2 * math.Sqrt(rj2))
			wh.acc[i][0] += direct*dx - indirect*rjx
			wh.acc[i][1] += direct*dy - indirect*rjy
			wh.acc[i][2] += direct*dz - indirect*rjz
		}
	}
	if s.AdditionalForces != nil {
		s.AdditionalForces(s, wh.acc)
	}
	for i := 1; i < n; i++ {
		p := &s.particles[i]
		p.VX += wh.acc[i][0] * dt
		p.VY += wh.acc[i][1] * dt
		p.VZ += wh.acc[i][2] * dt
	}
}

// drift moves every non-primary particle along its two-body orbit about the primary, and
// the primary along its straight line.
func (wh *whfast) drift(s *Simulation, dt float64) {
	n := len(s.particles)
	p0 := &s.particles[0]
	for i := 1; i < n; i++ {
		p := &s.particles[i]
		μ := s.G * (p0.M + p.M)
		r0 := [3]float64{p.X - p0.X, p.Y - p0.Y, p.Z - p0.Z}
		v0 := [3]float64{p.VX - p0.VX, p.VY - p0.VY, p.VZ - p0.VZ}
		r1, v1 := keplerUniversal(r0, v0, μ, dt)
		p.X = p0.X + r1[0] + p0.VX*dt
		p.Y = p0.Y + r1[1] + p0.VY*dt
		p.Z = p0.Z + r1[2] + p0.VZ*dt
		p.VX = p0.VX + v1[0]
		p.VY = p0.VY + v1[1]
		p.VZ = p0.VZ + v1[2]
	}
	p0.X += p0.VX * dt
	p0.Y += p0.VY * dt
	p0.Z += p0.VZ * dt
}

func (wh *whfast) Reset() {
	wh.warned = false
}

func (wh *whfast) Clone() Integrator {
	return &whfast{warned: wh.warned}
}

func (wh *whfast) String() string {
	return "whfast"
}

// keplerUniversal propagates a two-body state by dt using universal variables.
// Algorithm from Vallado, 4th edition, page 93 (KEPLER), with Stumpff functions.
func keplerUniversal(r0, v0 [3]float64, μ, dt float64) (r, v [3]float64) {
	if dt == 0 {
		return r0, v0
	}
	r0n := math.Sqrt(r0[0]*r0[0] + r0[1]*r0[1] + r0[2]*r0[2])
	v0n2 := v0[0]*v0[0] + v0[1]*v0[1] + v0[2]*v0[2]
	rdotv := r0[0]*v0[0] + r0[1]*v0[1] + r0[2]*v0[2]
	sqrtμ := math.Sqrt(μ)
	α := -v0n2/μ + 2/r0n

	var χ float64
	switch {
	case α > 1e-12:
		// Elliptic.
		χ = sqrtμ * dt * α
	case α < -1e-12:
		// Hyperbolic.
		a := 1 / α
		χ = sign(dt) * math.Sqrt(-a) * math.Log(-2*μ*α*dt/(rdotv+sign(dt)*math.Sqrt(-μ*a)*(1-r0n*α)))
	default:
		// Near-parabolic: seed with the elliptic guess and let Newton converge.
		χ = sqrtμ * dt / r0n
	}

	var c2, c3, rn, ψ float64
	for iter := 0; iter < 50; iter++ {
		ψ = χ * χ * α
		c2, c3 = stumpff(ψ)
		rn = χ*χ*c2 + rdotv/sqrtμ*χ*(1-ψ*c3) + r0n*(1-ψ*c2)
		Δχ := (sqrtμ*dt - χ*χ*χ*c3 - rdotv/sqrtμ*χ*χ*c2 - r0n*χ*(1-ψ*c3)) / rn
		χ += Δχ
		if math.Abs(Δχ) < 1e-13 {
			break
		}
	}
	ψ = χ * χ * α
	c2, c3 = stumpff(ψ)
	rn = χ*χ*c2 + rdotv/sqrtμ*χ*(1-ψ*c3) + r0n*(1-ψ*c2)

	f := 1 - χ*χ/r0n*c2
	g := dt - χ*χ*χ/sqrtμ*c3
	fDot := sqrtμ / (rn * r0n) * χ * (ψ*c3 - 1)
	gDot := 1 - χ*χ/rn*c2
	for k := 0; k < 3; k++ {
		r[k] = f*r0[k] + g*v0[k]
		v[k] = fDot*r0[k] + gDot*v0[k]
	}
	return
}

// stumpff returns the C2 and C3 Stumpff functions of ψ.
func stumpff(ψ float64) (c2, c3 float64) {
	switch {
	case ψ > 1e-6:
		sψ := math.Sqrt(ψ)
		c2 = (1 - math.Cos(sψ)) / ψ
		c3 = (sψ - math.Sin(sψ)) / (sψ * sψ * sψ)
	case ψ < -1e-6:
		sψ := math.Sqrt(-ψ)
		c2 = (1 - math.Cosh(sψ)) / ψ
		c3 = (math.Sinh(sψ) - sψ) / (sψ * sψ * sψ)
	default:
		c2 = 1./2 - ψ/24
		c3 = 1./6 - ψ/120
	}
	return
}
