package rebound

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Persisted-state layout: the magic tag, a version, the simulation scalars in fixed
// order, then the particle array as packed little-endian records
// (m, r, x, y, z, vx, vy, vz, h). String identities resolve across processes because
// HashName (FNV-1a 64) is part of this contract.

var snapMagic = [4]byte{'R', 'B', 'S', 'M'}

const snapVersion uint16 = 1

var integratorTags = map[string]uint8{
	"ias15":    1,
	"whfast":   2,
	"leapfrog": 3,
	"rk4":      4,
	"dopri":    5,
}

func tagToIntegrator(tag uint8) (string, bool) {
	for name, t := range integratorTags {
		if t == tag {
			return name, true
		}
	}
	return "", false
}

type snapshotHeader struct {
	T, DT, G         float64
	ExitMax, ExitMin float64
	Integrator       uint8
	N                uint64
}

type particleRecord struct {
	M, R                float64
	X, Y, Z, VX, VY, VZ float64
	H                   uint64
}

// Save writes the binary snapshot of the simulation.
func (s *Simulation) Save(w io.Writer) error {
	if _, err := w.Write(snapMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, snapVersion); err != nil {
		return err
	}
	hdr := snapshotHeader{
		T:          s.t,
		DT:         s.dt,
		G:          s.G,
		ExitMax:    s.ExitMaxDistance,
		ExitMin:    s.ExitMinDistance,
		Integrator: integratorTags[s.integName],
		N:          uint64(len(s.particles)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	for _, p := range s.particles {
		rec := particleRecord{M: p.M, R: p.Radius, X: p.X, Y: p.Y, Z: p.Z, VX: p.VX, VY: p.VY, VZ: p.VZ, H: p.Hash}
		if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the simulation state with the snapshot read from r. Names are not part
// of the snapshot; a caller which added particles by name finds them again through
// HashName.
func (s *Simulation) Load(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return err
	}
	if !bytes.Equal(magic[:], snapMagic[:]) {
		return fmt.Errorf("not a simulation snapshot (bad magic %q)", magic)
	}
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != snapVersion {
		return fmt.Errorf("unsupported snapshot version %d", version)
	}
	var hdr snapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	name, known := tagToIntegrator(hdr.Integrator)
	if !known {
		return fmt.Errorf("unsupported integrator tag %d", hdr.Integrator)
	}
	particles := make([]Particle, hdr.N)
	hashToIndex := make(map[uint64]int, hdr.N)
	for i := range particles {
		var rec particleRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return err
		}
		particles[i] = Particle{M: rec.M, Radius: rec.R, X: rec.X, Y: rec.Y, Z: rec.Z, VX: rec.VX, VY: rec.VY, VZ: rec.VZ, Hash: rec.H}
		hashToIndex[rec.H] = i
	}
	s.t = hdr.T
	s.dt = hdr.DT
	s.G = hdr.G
	s.ExitMaxDistance = hdr.ExitMax
	s.ExitMinDistance = hdr.ExitMin
	s.integName = name
	s.integ = nil
	s.particles = particles
	s.hashToIndex = hashToIndex
	s.usedHashes = make(map[uint64]struct{}, hdr.N)
	for h := range hashToIndex {
		s.usedHashes[h] = struct{}{}
	}
	s.nextHash = 1
	s.mutated()
	return nil
}

// SaveFile writes the snapshot to the named file.
func (s *Simulation) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Save(f)
}

// LoadSimulation returns a new simulation restored from the named snapshot file.
func LoadSimulation(path string) (*Simulation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s := NewSimulation()
	if err := s.Load(f); err != nil {
		return nil, err
	}
	return s, nil
}
