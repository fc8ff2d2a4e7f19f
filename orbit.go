package rebound

import (
	"math"

	"github.com/gonum/floats"
)

const (
	// Branch guards for the singular loci. These only select the formula used for the
	// angles, they never clamp a or e.
	circularε   = 1e-11
	equatorialε = 1e-11
)

// AnomalyKind selects how the Anom field of OrbitParams is interpreted.
type AnomalyKind uint8

const (
	// TrueAnomaly is the default: Anom is ν.
	TrueAnomaly AnomalyKind = iota
	// MeanAnomaly interprets Anom as M.
	MeanAnomaly
	// EccentricAnomaly interprets Anom as E (or the hyperbolic H).
	EccentricAnomaly
	// MeanLongitude interprets Anom as λ = ϖ + M.
	MeanLongitude
)

func (k AnomalyKind) String() string {
	switch k {
	case TrueAnomaly:
		return "true anomaly"
	case MeanAnomaly:
		return "mean anomaly"
	case EccentricAnomaly:
		return "eccentric anomaly"
	case MeanLongitude:
		return "mean longitude"
	default:
		panic("unknown anomaly kind")
	}
}

// OrbitParams describes a particle by its orbit around a primary. All angles in radians.
type OrbitParams struct {
	Primary  uint64 // Hash of the primary; zero means the first particle.
	M        float64
	Radius   float64
	A        float64 // Semi-major axis, negative for hyperbolic orbits.
	E        float64
	Inc      float64
	Node     float64 // Longitude of the ascending node Ω.
	Peri     float64 // Argument of periapsis ω, or ϖ when LongPeri is set.
	LongPeri bool
	Anom     float64
	Kind     AnomalyKind
	Hash     uint64
	Name     string
}

// Orbit holds the classical elements of a particle with respect to a primary, plus the
// non-singular longitudes which stay defined at the circular and equatorial loci.
type Orbit struct {
	A, E, Inc, Node, Peri, Nu     float64
	Pomega, Lambda                float64 // ϖ = Ω ± ω and λ = ϖ + M.
	MeanAnomaly, EccentricAnomaly float64
	μ                             float64
}

// Period returns the orbital period in simulation time units. Meaningless for unbound orbits.
func (o Orbit) Period() float64 {
	return 2 * math.Pi / o.MeanMotion()
}

// MeanMotion returns n = sqrt(μ/a³).
func (o Orbit) MeanMotion() float64 {
	return math.Sqrt(o.μ / math.Pow(math.Abs(o.A), 3))
}

func mod2pi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// kepler solves Kepler's equation for the eccentric anomaly (or the hyperbolic H) via
// Newton-Raphson.
func kepler(M, e float64) float64 {
	if e > 1 {
		// Hyperbolic: e sinh H - H = M.
		H := math.Asinh(M / e)
		for iter := 0; iter < 50; iter++ {
			f := e*math.Sinh(H) - H - M
			ΔH := -f / (e*math.Cosh(H) - 1)
			H += ΔH
			if math.Abs(ΔH) < 1e-14 {
				break
			}
		}
		return H
	}
	E := M
	if e > 0.8 {
		E = math.Pi * sign(M)
	}
	for iter := 0; iter < 50; iter++ {
		f := E - e*math.Sin(E) - M
		ΔE := -f / (1 - e*math.Cos(E))
		E += ΔE
		if math.Abs(ΔE) < 1e-14 {
			break
		}
	}
	return E
}

func eccentric2True(E, e float64) float64 {
	if e > 1 {
		return 2 * math.Atan(math.Sqrt((e+1)/(e-1))*math.Tanh(E/2))
	}
	return 2 * math.Atan2(math.Sqrt(1+e)*math.Sin(E/2), math.Sqrt(1-e)*math.Cos(E/2))
}

func true2Eccentric(ν, e float64) float64 {
	if e > 1 {
		return 2 * math.Atanh(math.Sqrt((e-1)/(e+1))*math.Tan(ν/2))
	}
	return 2 * math.Atan2(math.Sqrt(1-e)*math.Sin(ν/2), math.Sqrt(1+e)*math.Cos(ν/2))
}

func eccentric2Mean(E, e float64) float64 {
	if e > 1 {
		return e*math.Sinh(E) - E
	}
	return E - e*math.Sin(E)
}

// coe2rv converts the orbital descriptor to position and velocity vectors relative to the
// primary. Algorithm from Vallado, 4th edition, page 118 (COE2RV).
func coe2rv(op OrbitParams, μ, t float64) (R, V []float64, err error) {
	a, e := op.A, op.E
	if e < 0 {
		return nil, nil, newErr(KindInvalidOrbit, t, "eccentricity cannot be negative (e=%g)", e)
	}
	if a == 0 {
		return nil, nil, newErr(KindInvalidOrbit, t, "semi-major axis cannot be zero")
	}
	if e == 1 {
		return nil, nil, newErr(KindInvalidOrbit, t, "parabolic orbits are not supported by element input, use Cartesian state")
	}
	if (e < 1 && a < 0) || (e > 1 && a > 0) {
		return nil, nil, newErr(KindInvalidOrbit, t, "semi-major axis sign inconsistent with eccentricity (a=%g, e=%g)", a, e)
	}
	i, Ω := op.Inc, op.Node
	ω := op.Peri
	if op.LongPeri {
		ω = op.Peri - Ω
	}
	var ν float64
	switch op.Kind {
	case TrueAnomaly:
		ν = op.Anom
	case MeanAnomaly:
		ν = eccentric2True(kepler(op.Anom, e), e)
	case EccentricAnomaly:
		ν = eccentric2True(op.Anom, e)
	case MeanLongitude:
		ϖ := Ω + ω
		if op.LongPeri {
			ϖ = op.Peri
		}
		ν = eccentric2True(kepler(op.Anom-ϖ, e), e)
	default:
		panic("unknown anomaly kind")
	}
	if e > 1 && 1+e*math.Cos(ν) <= 0 {
		return nil, nil, newErr(KindInvalidOrbit, t, "true anomaly beyond the hyperbolic asymptote (ν=%g, e=%g)", ν, e)
	}
	p := a * (1 - e*e)
	μOp := math.Sqrt(μ / p)
	sinν, cosν := math.Sincos(ν)
	rPQW := []float64{p * cosν / (1 + e*cosν), p * sinν / (1 + e*cosν), 0}
	vPQW := []float64{-μOp * sinν, μOp * (e + cosν), 0}
	R = Rot313Vec(-ω, -i, -Ω, rPQW)
	V = Rot313Vec(-ω, -i, -Ω, vPQW)
	return R, V, nil
}

// rv2coe computes the orbital elements from position and velocity vectors relative to the
// primary. Algorithm from Vallado, 4th edition, page 113 (RV2COE), with the angle
// computations switched to quadrant-safe forms at the circular and equatorial loci so the
// non-singular longitudes remain defined there.
func rv2coe(R, V []float64, μ float64) (o Orbit) {
	o.μ = μ
	hVec := cross(R, V)
	h := norm(hVec)
	nVec := cross([]float64{0, 0, 1}, hVec)
	n := norm(nVec)
	v := norm(V)
	r := norm(R)
	ξ := (v*v)/2 - μ/r
	o.A = -μ / (2 * ξ)
	eVec := make([]float64, 3)
	for j := 0; j < 3; j++ {
		eVec[j] = ((v*v-μ/r)*R[j] - dot(R, V)*V[j]) / μ
	}
	o.E = norm(eVec)
	o.Inc = math.Acos(hVec[2] / h)

	circular := o.E < circularε
	equatorial := math.Sin(o.Inc) < equatorialε
	retrograde := o.Inc > math.Pi/2

	if !equatorial {
		o.Node = math.Acos(nVec[0] / n)
		if math.IsNaN(o.Node) {
			o.Node = 0
		}
		if nVec[1] < 0 {
			o.Node = 2*math.Pi - o.Node
		}
	}
	switch {
	case circular && equatorial:
		// ω and Ω are individually arbitrary; report the true longitude through ν.
		o.Nu = math.Atan2(R[1], R[0])
		if retrograde {
			o.Nu = math.Atan2(-R[1], R[0])
		}
	case circular:
		// ω is arbitrary; the argument of latitude carries the position.
		o.Nu = math.Acos(dot(nVec, R) / (n * r))
		if math.IsNaN(o.Nu) {
			o.Nu = 0
		}
		if R[2] < 0 {
			o.Nu = 2*math.Pi - o.Nu
		}
	case equatorial:
		// Ω is arbitrary; measure the periapsis from the x axis.
		o.Peri = math.Atan2(eVec[1], eVec[0])
		if retrograde {
			o.Peri = math.Atan2(-eVec[1], eVec[0])
		}
		o.Nu = trueAnomalyFrom(eVec, R, V, o.E, r)
	default:
		o.Peri = math.Acos(dot(nVec, eVec) / (n * o.E))
		if math.IsNaN(o.Peri) {
			o.Peri = 0
		}
		if eVec[2] < 0 {
			o.Peri = 2*math.Pi - o.Peri
		}
		o.Nu = trueAnomalyFrom(eVec, R, V, o.E, r)
	}
	o.Node = mod2pi(o.Node)
	o.Peri = mod2pi(o.Peri)
	o.Nu = math.Mod(o.Nu, 2*math.Pi)
	if o.E < 1 {
		o.Nu = mod2pi(o.Nu)
	} else if o.Nu > math.Pi {
		// Unbound orbits keep ν in (-π, π) so the anomaly conversions stay defined.
		o.Nu -= 2 * math.Pi
	}
	if retrograde {
		o.Pomega = mod2pi(o.Node - o.Peri)
	} else {
		o.Pomega = mod2pi(o.Node + o.Peri)
	}
	o.EccentricAnomaly = true2Eccentric(o.Nu, o.E)
	o.MeanAnomaly = eccentric2Mean(o.EccentricAnomaly, o.E)
	o.Lambda = mod2pi(o.Pomega + o.MeanAnomaly)
	return
}

// OrbitOf returns the orbital elements of the particle with hash h about the primary
// (the first particle unless primaryHash names one).
func (s *Simulation) OrbitOf(h, primaryHash uint64) (Orbit, error) {
	p, err := s.ParticleByHash(h)
	if err != nil {
		return Orbit{}, err
	}
	primary := &s.particles[0]
	if primaryHash != 0 {
		primary, err = s.ParticleByHash(primaryHash)
		if err != nil {
			return Orbit{}, err
		}
	}
	μ := s.G * (primary.M + p.M)
	R := []float64{p.X - primary.X, p.Y - primary.Y, p.Z - primary.Z}
	V := []float64{p.VX - primary.VX, p.VY - primary.VY, p.VZ - primary.VZ}
	return rv2coe(R, V, μ), nil
}

func trueAnomalyFrom(eVec, R, V []float64, e, r float64) float64 {
	cosν := dot(eVec, R) / (e * r)
	if abscosν := math.Abs(cosν); abscosν > 1 && floats.EqualWithinAbs(abscosν, 1, 1e-12) {
		cosν = sign(cosν)
	}
	ν := math.Acos(cosν)
	if math.IsNaN(ν) {
		ν = 0
	}
	if dot(R, V) < 0 {
		ν = 2*math.Pi - ν
	}
	return ν
}
