package storage

import "github.com/kepler-sim/orbitlab/internal/body"

// Recorder samples the step stream into snapshots. It implements
// sim.Observer; every Nth step is kept, so memory stays proportional to the
// sampled trajectory rather than the step count.
type Recorder struct {
	every int
	steps int
	snaps []Snapshot
}

// NewRecorder keeps one snapshot every n observed steps. n < 1 keeps all.
func NewRecorder(n int) *Recorder {
	if n < 1 {
		n = 1
	}
	return &Recorder{every: n}
}

func (r *Recorder) OnStep(bodies []body.Body, t float64) {
	if r.steps%r.every == 0 {
		r.Record(bodies, t)
	}
	r.steps++
}

// Record stores a snapshot unconditionally. Callers use it for the initial
// state and right after a merge, so the discontinuity is captured even when
// it falls between sampling points.
func (r *Recorder) Record(bodies []body.Body, t float64) {
	cp := make([]body.Body, len(bodies))
	copy(cp, bodies)
	r.snaps = append(r.snaps, Snapshot{Time: t, Bodies: cp})
}

func (r *Recorder) Snapshots() []Snapshot {
	return r.snaps
}
