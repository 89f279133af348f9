package metrics

import (
	"math"
	"testing"

	"github.com/kepler-sim/orbitlab/internal/body"
)

func twoBodies(sep float64) []body.Body {
	return []body.Body{
		{ID: "a", Mass: 1, Pos: body.Vec3{0, 0, 0}, Vel: body.Vec3{0, 0.5, 0}},
		{ID: "b", Mass: 1, Pos: body.Vec3{sep, 0, 0}, Vel: body.Vec3{0, -0.5, 0}},
	}
}

func TestEnergyDrift_ZeroForUnchangedState(t *testing.T) {
	m := NewEnergyDrift(1.0)

	m.OnStep(twoBodies(2), 0)
	m.OnStep(twoBodies(2), 1)
	m.OnStep(twoBodies(2), 2)

	if m.Value() != 0 {
		t.Errorf("drift = %v for identical states, want 0", m.Value())
	}
}

func TestEnergyDrift_DetectsChange(t *testing.T) {
	m := NewEnergyDrift(1.0)

	m.OnStep(twoBodies(2), 0)
	m.OnStep(twoBodies(1), 1) // closer pair, lower potential energy

	if m.Value() == 0 {
		t.Error("drift should be non-zero after energy change")
	}
}

func TestEnergyDrift_Rebase(t *testing.T) {
	m := NewEnergyDrift(1.0)

	m.OnStep(twoBodies(2), 0)
	m.OnStep(twoBodies(1), 1)
	peak := m.Value()

	m.Rebase()
	m.OnStep(twoBodies(1), 2) // new baseline
	m.OnStep(twoBodies(1), 3)

	if m.Value() != peak {
		t.Errorf("rebase should keep the accumulated max, got %v want %v", m.Value(), peak)
	}
}

func TestEnergyDrift_Reset(t *testing.T) {
	m := NewEnergyDrift(1.0)
	m.OnStep(twoBodies(2), 0)
	m.OnStep(twoBodies(1), 1)

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("value after reset = %v, want 0", m.Value())
	}
}

func TestMomentumDrift_ConservedThroughMerge(t *testing.T) {
	m := NewMomentumDrift()

	bodies := twoBodies(1)
	m.OnStep(bodies, 0)

	merged := []body.Body{body.Merge(bodies[0], bodies[1])}
	m.OnStep(merged, 1)

	if m.Value() > 1e-12 {
		t.Errorf("momentum drift through merge = %v, want ~0", m.Value())
	}
}

func TestMomentumDrift_DetectsViolation(t *testing.T) {
	m := NewMomentumDrift()

	m.OnStep(twoBodies(1), 0)

	kicked := twoBodies(1)
	kicked[0].Vel = kicked[0].Vel.Add(body.Vec3{0.1, 0, 0})
	m.OnStep(kicked, 1)

	if math.Abs(m.Value()-0.1) > 1e-12 {
		t.Errorf("drift = %v, want 0.1", m.Value())
	}
}
