package gravity

import (
	"math"

	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/ode"
)

// System is the pairwise inverse-square gravitational N-body system. The
// state layout is positions in the first half (3 components per body) and
// velocities in the second half, so that split-step integrators can treat
// the two halves independently.
type System struct {
	G         float64
	Softening float64
	Masses    []float64
}

func New(g float64, masses []float64) *System {
	return &System{G: g, Masses: masses}
}

func (s *System) Dim() int { return 6 * len(s.Masses) }

// Pack flattens bodies into a state vector matching the System layout.
func Pack(bodies []body.Body) ode.State {
	n := len(bodies)
	x := make(ode.State, 6*n)
	for i, b := range bodies {
		for k := 0; k < 3; k++ {
			x[3*i+k] = b.Pos[k]
			x[3*(n+i)+k] = b.Vel[k]
		}
	}
	return x
}

// Unpack writes a state vector back into the bodies' positions and
// velocities. The slice length must match the state dimension.
func Unpack(x ode.State, bodies []body.Body) {
	n := len(bodies)
	for i := range bodies {
		for k := 0; k < 3; k++ {
			bodies[i].Pos[k] = x[3*i+k]
			bodies[i].Vel[k] = x[3*(n+i)+k]
		}
	}
}

func (s *System) Derive(x ode.State, t float64) ode.State {
	n := len(s.Masses)
	dx := make(ode.State, len(x))
	eps2 := s.Softening * s.Softening

	// d(pos)/dt = vel
	copy(dx[:3*n], x[3*n:])

	acc := dx[3*n:]
	for i := 0; i < n; i++ {
		xi, yi, zi := x[3*i], x[3*i+1], x[3*i+2]
		for j := i + 1; j < n; j++ {
			rx := x[3*j] - xi
			ry := x[3*j+1] - yi
			rz := x[3*j+2] - zi
			r2 := rx*rx + ry*ry + rz*rz + eps2

			rInv := 1.0 / math.Sqrt(r2)
			r3Inv := rInv * rInv * rInv

			fij := s.G * s.Masses[j] * r3Inv
			acc[3*i] += fij * rx
			acc[3*i+1] += fij * ry
			acc[3*i+2] += fij * rz

			fji := s.G * s.Masses[i] * r3Inv
			acc[3*j] -= fji * rx
			acc[3*j+1] -= fji * ry
			acc[3*j+2] -= fji * rz
		}
	}

	return dx
}

// Energy returns the total mechanical energy, kinetic plus pairwise
// potential.
func (s *System) Energy(x ode.State) float64 {
	n := len(s.Masses)
	ke := 0.0
	pe := 0.0
	eps2 := s.Softening * s.Softening

	for i := 0; i < n; i++ {
		vx, vy, vz := x[3*(n+i)], x[3*(n+i)+1], x[3*(n+i)+2]
		ke += 0.5 * s.Masses[i] * (vx*vx + vy*vy + vz*vz)

		for j := i + 1; j < n; j++ {
			rx := x[3*j] - x[3*i]
			ry := x[3*j+1] - x[3*i+1]
			rz := x[3*j+2] - x[3*i+2]
			r := math.Sqrt(rx*rx + ry*ry + rz*rz + eps2)
			pe -= s.G * s.Masses[i] * s.Masses[j] / r
		}
	}

	return ke + pe
}

// Momentum returns the total linear momentum.
func (s *System) Momentum(x ode.State) body.Vec3 {
	n := len(s.Masses)
	var p body.Vec3
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			p[k] += s.Masses[i] * x[3*(n+i)+k]
		}
	}
	return p
}

// AngularMomentum returns the total angular momentum about the origin.
func (s *System) AngularMomentum(x ode.State) body.Vec3 {
	n := len(s.Masses)
	var l body.Vec3
	for i := 0; i < n; i++ {
		r := body.Vec3{x[3*i], x[3*i+1], x[3*i+2]}
		v := body.Vec3{x[3*(n+i)], x[3*(n+i)+1], x[3*(n+i)+2]}
		l = l.Add(r.Cross(v).Scale(s.Masses[i]))
	}
	return l
}

// MinSeparation scans all unordered pairs and returns the indices of the
// closest pair along with their squared separation. With fewer than two
// bodies the returned separation is +Inf.
func (s *System) MinSeparation(x ode.State) (i, j int, d2 float64) {
	n := len(s.Masses)
	d2 = math.Inf(1)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			rx := x[3*b] - x[3*a]
			ry := x[3*b+1] - x[3*a+1]
			rz := x[3*b+2] - x[3*a+2]
			if r2 := rx*rx + ry*ry + rz*rz; r2 < d2 {
				i, j, d2 = a, b, r2
			}
		}
	}
	return
}
