package metrics

import (
	"math"

	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/gravity"
	"github.com/kepler-sim/orbitlab/internal/ode"
	"github.com/kepler-sim/orbitlab/internal/sim"
)

// Metric is an observer that reduces the step stream to a single number.
type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

func systemEnergy(g float64, bodies []body.Body) float64 {
	masses := make([]float64, len(bodies))
	for i, b := range bodies {
		masses[i] = b.Mass
	}
	var h ode.Hamiltonian = gravity.New(g, masses)
	return h.Energy(gravity.Pack(bodies))
}

// EnergyDrift tracks the maximum relative deviation of total energy from its
// value at the first observed step. A merge dissipates energy legitimately;
// call Rebase after one so the drift keeps measuring integrator error only.
type EnergyDrift struct {
	g       float64
	initial float64
	set     bool
	max     float64
}

func NewEnergyDrift(g float64) *EnergyDrift {
	return &EnergyDrift{g: g}
}

func (m *EnergyDrift) Name() string { return "energy_drift" }

func (m *EnergyDrift) OnStep(bodies []body.Body, t float64) {
	e := systemEnergy(m.g, bodies)
	if !m.set {
		m.initial = e
		m.set = true
		return
	}
	if m.initial == 0 {
		return
	}
	if drift := math.Abs(e-m.initial) / math.Abs(m.initial); drift > m.max {
		m.max = drift
	}
}

func (m *EnergyDrift) Value() float64 { return m.max }

func (m *EnergyDrift) Reset() {
	m.set = false
	m.initial = 0
	m.max = 0
}

// Rebase keeps the accumulated maximum but restarts the reference energy at
// the next observed step.
func (m *EnergyDrift) Rebase() { m.set = false }

// MomentumDrift tracks the maximum deviation of the total linear momentum
// vector from its value at the first observed step. Unlike energy it is
// conserved through merges, so no rebasing is needed.
type MomentumDrift struct {
	initial body.Vec3
	set     bool
	max     float64
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{}
}

func (m *MomentumDrift) Name() string { return "momentum_drift" }

func (m *MomentumDrift) OnStep(bodies []body.Body, t float64) {
	var p body.Vec3
	for _, b := range bodies {
		p = p.Add(b.Vel.Scale(b.Mass))
	}
	if !m.set {
		m.initial = p
		m.set = true
		return
	}
	if d := p.Sub(m.initial).Norm(); d > m.max {
		m.max = d
	}
}

func (m *MomentumDrift) Value() float64 { return m.max }

func (m *MomentumDrift) Reset() {
	m.set = false
	m.initial = body.Vec3{}
	m.max = 0
}
