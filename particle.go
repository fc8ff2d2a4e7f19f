package rebound

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Particle defines a gravitating point mass. A particle with M=0 is a massless test
// particle: forces act on it but it exerts none.
type Particle struct {
	M          float64 // Mass in units consistent with the simulation's G.
	Radius     float64 // Physical radius, informational unless a collision callback uses it.
	X, Y, Z    float64
	VX, VY, VZ float64
	Hash       uint64 // Stable identity, survives index compaction. Zero means unassigned.
	Name       string // Optional label; when set and Hash is zero, Hash = HashName(Name).
}

// HashName derives the 64-bit identity of a string label via FNV-1a.
// The function is part of the persisted-state contract: serialized simulations resolve
// string identities across processes only because this hash is deterministic and unseeded.
func HashName(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// R returns the position vector.
func (p Particle) R() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// V returns the velocity vector.
func (p Particle) V() []float64 {
	return []float64{p.VX, p.VY, p.VZ}
}

// RNorm returns the distance from the inertial origin.
func (p Particle) RNorm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// VNorm returns the speed.
func (p Particle) VNorm() float64 {
	return math.Sqrt(p.VX*p.VX + p.VY*p.VY + p.VZ*p.VZ)
}

func (p Particle) String() string {
	if p.Name != "" {
		return fmt.Sprintf("%s m=%g r=[%g %g %g] v=[%g %g %g]", p.Name, p.M, p.X, p.Y, p.Z, p.VX, p.VY, p.VZ)
	}
	return fmt.Sprintf("%d m=%g r=[%g %g %g] v=[%g %g %g]", p.Hash, p.M, p.X, p.Y, p.Z, p.VX, p.VY, p.VZ)
}
