package gravity

import (
	"math"
	"testing"

	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/ode"
)

func TestPackUnpack_RoundTrip(t *testing.T) {
	bodies := []body.Body{
		{ID: "a", Mass: 1, Pos: body.Vec3{1, 2, 3}, Vel: body.Vec3{4, 5, 6}},
		{ID: "b", Mass: 2, Pos: body.Vec3{-1, -2, -3}, Vel: body.Vec3{-4, -5, -6}},
	}

	x := Pack(bodies)
	if len(x) != 12 {
		t.Fatalf("state dim = %d, want 12", len(x))
	}

	out := make([]body.Body, len(bodies))
	copy(out, bodies)
	for i := range out {
		out[i].Pos = body.Vec3{}
		out[i].Vel = body.Vec3{}
	}
	Unpack(x, out)

	for i := range bodies {
		if out[i].Pos != bodies[i].Pos || out[i].Vel != bodies[i].Vel {
			t.Errorf("body %d round trip: got %+v, want %+v", i, out[i], bodies[i])
		}
	}
}

func TestDerive_TwoBodyAcceleration(t *testing.T) {
	// Unit masses separated by 2 along x, G=1: each feels |a| = 1/4
	// toward the other.
	sys := New(1.0, []float64{1, 1})
	x := ode.State{
		-1, 0, 0,
		1, 0, 0,
		0, 0.5, 0,
		0, -0.5, 0,
	}

	dx := sys.Derive(x, 0)

	// Position derivatives are the velocities.
	if dx[1] != 0.5 || dx[4] != -0.5 {
		t.Errorf("d(pos)/dt = %v %v, want velocities", dx[1], dx[4])
	}

	if math.Abs(dx[6]-0.25) > 1e-12 {
		t.Errorf("ax on body 0 = %v, want +0.25", dx[6])
	}
	if math.Abs(dx[9]+0.25) > 1e-12 {
		t.Errorf("ax on body 1 = %v, want -0.25", dx[9])
	}
}

func TestDerive_NewtonThirdLaw(t *testing.T) {
	sys := New(1.0, []float64{2, 3, 5})
	x := ode.State{
		0, 0, 0,
		1, 0.5, 0,
		-0.3, 2, 1,
		0, 0, 0,
		0, 0, 0,
		0, 0, 0,
	}

	dx := sys.Derive(x, 0)

	// Total force must vanish: sum of m_i * a_i per axis.
	for k := 0; k < 3; k++ {
		f := 0.0
		for i := 0; i < 3; i++ {
			f += sys.Masses[i] * dx[9+3*i+k]
		}
		if math.Abs(f) > 1e-12 {
			t.Errorf("net force axis %d = %v, want 0", k, f)
		}
	}
}

func TestEnergy_TwoBody(t *testing.T) {
	sys := New(1.0, []float64{1, 1})
	x := ode.State{
		0, 0, 0,
		2, 0, 0,
		0, 0, 0,
		0, 1, 0,
	}

	// KE = 0.5*1*1, PE = -1*1*1/2.
	want := 0.5 - 0.5
	if got := sys.Energy(x); math.Abs(got-want) > 1e-12 {
		t.Errorf("energy = %v, want %v", got, want)
	}
}

func TestMomentum(t *testing.T) {
	sys := New(1.0, []float64{1, 3})
	x := ode.State{
		0, 0, 0,
		1, 0, 0,
		3, 0, 0,
		-1, 0, 0,
	}

	p := sys.Momentum(x)
	if p != (body.Vec3{0, 0, 0}) {
		t.Errorf("momentum = %v, want zero", p)
	}
}

func TestAngularMomentum_CircularPair(t *testing.T) {
	sys := New(1.0, []float64{1, 1})
	x := ode.State{
		1, 0, 0,
		-1, 0, 0,
		0, 1, 0,
		0, -1, 0,
	}

	l := sys.AngularMomentum(x)
	if math.Abs(l[2]-2.0) > 1e-12 {
		t.Errorf("Lz = %v, want 2", l[2])
	}
	if l[0] != 0 || l[1] != 0 {
		t.Errorf("Lx, Ly = %v %v, want 0", l[0], l[1])
	}
}

func TestMinSeparation(t *testing.T) {
	sys := New(1.0, []float64{1, 1, 1})
	x := ode.State{
		0, 0, 0,
		1, 0, 0,
		5, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	i, j, d2 := sys.MinSeparation(x)
	if i != 0 || j != 1 {
		t.Errorf("closest pair = (%d, %d), want (0, 1)", i, j)
	}
	if math.Abs(d2-1.0) > 1e-12 {
		t.Errorf("d2 = %v, want 1", d2)
	}
}

func TestMinSeparation_TieBreaksToFirstPair(t *testing.T) {
	// Pairs (0,1) and (1,2) are both at distance 1; strict less-than keeps
	// the first-enumerated pair.
	sys := New(1.0, []float64{1, 1, 1})
	x := ode.State{
		0, 0, 0,
		1, 0, 0,
		2, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	i, j, _ := sys.MinSeparation(x)
	if i != 0 || j != 1 {
		t.Errorf("tie broke to (%d, %d), want first pair (0, 1)", i, j)
	}
}
