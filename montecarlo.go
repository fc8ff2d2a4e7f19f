package rebound

import (
	"math"
	"math/rand"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

/* Seeded initial-condition generators. */

// Uniform draws from [min, max).
func Uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

// Powerlaw draws from a power-law distribution with the given slope on [min, max].
func Powerlaw(rng *rand.Rand, min, max, slope float64) float64 {
	u := rng.Float64()
	if slope == -1 {
		return math.Exp(math.Log(min) + u*(math.Log(max)-math.Log(min)))
	}
	s1 := slope + 1
	return math.Pow(math.Pow(min, s1)+u*(math.Pow(max, s1)-math.Pow(min, s1)), 1/s1)
}

// Rayleigh draws from a Rayleigh distribution of scale σ.
func Rayleigh(rng *rand.Rand, σ float64) float64 {
	return σ * math.Sqrt(-2*math.Log(1-rng.Float64()))
}

// NewPowerlawDisk adds n massless test particles on sampled orbits around the first
// particle: semi-major axes follow a power law on [aMin, aMax], eccentricities and
// inclinations are Rayleigh distributed (eccentricities capped below 1), the remaining
// angles uniform. The draw sequence is reproducible for a given seed.
func NewPowerlawDisk(s *Simulation, n int, aMin, aMax, slope, eσ, incσ float64, seed int64) error {
	if s.N() == 0 {
		return newErr(KindNoParticles, s.T(), "a disk needs a central body")
	}
	rng := rand.New(rand.NewSource(seed))
	for k := 0; k < n; k++ {
		e := Rayleigh(rng, eσ)
		if e > 0.99 {
			e = 0.99
		}
		op := OrbitParams{
			A:    Powerlaw(rng, aMin, aMax, slope),
			E:    e,
			Inc:  Rayleigh(rng, incσ),
			Node: Uniform(rng, 0, 2*math.Pi),
			Peri: Uniform(rng, 0, 2*math.Pi),
			Anom: Uniform(rng, 0, 2*math.Pi),
			Kind: MeanAnomaly,
		}
		if err := s.AddOrbit(op); err != nil {
			return err
		}
	}
	return nil
}

// NewGaussianCluster adds n stars of mass m with positions and velocities drawn from
// isotropic multivariate normals of standard deviations rσ and vσ.
func NewGaussianCluster(s *Simulation, n int, m, rσ, vσ float64, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	posDist, ok := distmv.NewNormal([]float64{0, 0, 0}, isotropicCov(rσ), rng)
	if !ok {
		panic("NOK in Gaussian")
	}
	velDist, ok := distmv.NewNormal([]float64{0, 0, 0}, isotropicCov(vσ), rng)
	if !ok {
		panic("NOK in Gaussian")
	}
	for k := 0; k < n; k++ {
		x := posDist.Rand(nil)
		v := velDist.Rand(nil)
		if err := s.Add(Particle{M: m, X: x[0], Y: x[1], Z: x[2], VX: v[0], VY: v[1], VZ: v[2]}); err != nil {
			return err
		}
	}
	return nil
}

func isotropicCov(σ float64) *mat64.SymDense {
	return mat64.NewSymDense(3, []float64{σ * σ, 0, 0, 0, σ * σ, 0, 0, 0, σ * σ})
}
