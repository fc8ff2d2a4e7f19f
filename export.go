package rebound

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ExportConfig configures the state-history streaming.
type ExportConfig struct {
	Filename string
	AsCSV    bool
}

// IsUseless returns whether this config doesn't actually export anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV || c.Filename == ""
}

// SimState stores one propagated state.
type SimState struct {
	T         float64
	JD        float64 // Julian date of the state per the simulation's Epoch and TimeUnit.
	Particles []Particle
}

// RecordStates starts streaming one state per completed step to the configured file.
// Call CloseRecorder once the propagation is done to flush and wait.
func (s *Simulation) RecordStates(conf ExportConfig) {
	if conf.IsUseless() {
		return
	}
	s.histChan = make(chan SimState, 1000) // a 1k entry buffer
	s.exportWG.Add(1)
	go func() {
		defer s.exportWG.Done()
		StreamStates(conf, s.histChan)
	}()
}

// CloseRecorder closes the history stream and blocks until the writer has drained it.
func (s *Simulation) CloseRecorder() {
	if s.histChan == nil {
		return
	}
	close(s.histChan)
	s.exportWG.Wait()
	s.histChan = nil
}

// StreamStates writes the states it receives until the channel closes. One row per
// particle per state.
func StreamStates(conf ExportConfig, states <-chan SimState) {
	f, err := os.Create(fmt.Sprintf("%s/%s.csv", rbConfig().outputDir, conf.Filename))
	if err != nil {
		panic(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"t", "jd", "hash", "name", "m", "x", "y", "z", "vx", "vy", "vz"})
	for state := range states {
		for _, p := range state.Particles {
			w.Write([]string{
				fmtFloat(state.T),
				strconv.FormatFloat(state.JD, 'f', 8, 64),
				strconv.FormatUint(p.Hash, 10),
				p.Name,
				fmtFloat(p.M),
				fmtFloat(p.X), fmtFloat(p.Y), fmtFloat(p.Z),
				fmtFloat(p.VX), fmtFloat(p.VY), fmtFloat(p.VZ),
			})
		}
	}
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
