package rebound

import (
	"math"
	"runtime"
	"sync"
)

// GravityMode selects the force evaluator variant.
type GravityMode uint8

const (
	// GravityNone skips self-gravity; only additional forces act.
	GravityNone GravityMode = iota + 1
	// GravityBasic is the direct O(N²) summation, fanned out over a worker pool for
	// large N.
	GravityBasic
	// GravityCompensated is the direct summation with compensated accumulation.
	GravityCompensated
)

func (g GravityMode) String() string {
	switch g {
	case GravityNone:
		return "none"
	case GravityBasic:
		return "basic"
	case GravityCompensated:
		return "compensated"
	default:
		panic("unknown gravity mode")
	}
}

// From this count on the direct summation is split across the worker pool.
const gravityParallelThreshold = 256

// positions fills buf with the current particle positions, growing it if needed.
func (s *Simulation) positions(buf [][3]float64) [][3]float64 {
	if cap(buf) < len(s.particles) {
		buf = make([][3]float64, len(s.particles))
	}
	buf = buf[:len(s.particles)]
	for i, p := range s.particles {
		buf[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return buf
}

// gravityAt computes the gravitational accelerations at the provided positions using the
// live particle masses. acc is overwritten. The evaluator owns acc: it never aliases the
// particle array.
func (s *Simulation) gravityAt(pos, acc [][3]float64) {
	for i := range acc {
		acc[i] = [3]float64{}
	}
	switch s.gravity {
	case GravityNone:
	case GravityBasic:
		if len(pos) >= gravityParallelThreshold {
			s.gravityParallel(pos, acc)
			break
		}
		for i := 0; i < len(pos); i++ {
			for j := i + 1; j < len(pos); j++ {
				dx := pos[j][0] - pos[i][0]
				dy := pos[j][1] - pos[i][1]
				dz := pos[j][2] - pos[i][2]
				r2 := dx*dx + dy*dy + dz*dz
				prefact := s.G / (r2 * math.Sqrt(r2))
				mi := prefact * s.particles[i].M
				mj := prefact * s.particles[j].M
				acc[i][0] += mj * dx
				acc[i][1] += mj * dy
				acc[i][2] += mj * dz
				acc[j][0] -= mi * dx
				acc[j][1] -= mi * dy
				acc[j][2] -= mi * dz
			}
		}
	case GravityCompensated:
		for i := 0; i < len(pos); i++ {
			var sum, comp [3]float64
			for j := 0; j < len(pos); j++ {
				if j == i {
					continue
				}
				dx := pos[j][0] - pos[i][0]
				dy := pos[j][1] - pos[i][1]
				dz := pos[j][2] - pos[i][2]
				r2 := dx*dx + dy*dy + dz*dz
				mj := s.G * s.particles[j].M / (r2 * math.Sqrt(r2))
				for k, d := range [3]float64{dx, dy, dz} {
					y := mj*d - comp[k]
					t := sum[k] + y
					comp[k] = (t - sum[k]) - y
					sum[k] = t
				}
			}
			acc[i] = sum
		}
	default:
		panic("unknown gravity mode")
	}
}

// gravityParallel fans the per-particle summation out over a fixed worker pool under a
// fork-join discipline; all workers are quiesced before it returns.
func (s *Simulation) gravityParallel(pos, acc [][3]float64) {
	workers := runtime.NumCPU()
	if workers > len(pos) {
		workers = len(pos)
	}
	chunk := (len(pos) + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(pos) {
			hi = len(pos)
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				for j := 0; j < len(pos); j++ {
					if j == i {
						continue
					}
					dx := pos[j][0] - pos[i][0]
					dy := pos[j][1] - pos[i][1]
					dz := pos[j][2] - pos[i][2]
					r2 := dx*dx + dy*dy + dz*dz
					mj := s.G * s.particles[j].M / (r2 * math.Sqrt(r2))
					acc[i][0] += mj * dx
					acc[i][1] += mj * dy
					acc[i][2] += mj * dz
				}
			}
		}(lo, hi)
	}
	wg.Wait()
}

// evalForces computes gravity at the provided positions and composes any additional
// forces on top, per the force evaluator contract.
func (s *Simulation) evalForces(pos, acc [][3]float64) {
	s.gravityAt(pos, acc)
	if s.AdditionalForces != nil {
		s.AdditionalForces(s, acc)
	}
}
