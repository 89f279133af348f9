package integrators

import "github.com/kepler-sim/orbitlab/internal/ode"

// Leapfrog is a kick-drift-kick symplectic integrator. It assumes the state
// is split into positions in the first half and velocities in the second
// half, which is the layout the gravity system uses.
type Leapfrog struct {
	scratch ode.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(sys ode.System, x ode.State, t, dt float64) ode.State {
	n := len(x)
	half := n / 2

	if len(l.scratch) != n {
		l.scratch = make(ode.State, n)
	}

	result := make(ode.State, n)
	dx := sys.Derive(x, t)
	halfDt := dt * 0.5

	// Kick: half-step the velocities.
	for i := 0; i < half; i++ {
		l.scratch[half+i] = x[half+i] + dx[half+i]*halfDt
	}

	// Drift: full-step the positions with the mid-point velocities.
	for i := 0; i < half; i++ {
		result[i] = x[i] + l.scratch[half+i]*dt
		l.scratch[i] = result[i]
	}

	dxNew := sys.Derive(l.scratch, t+dt)

	// Kick: finish the velocity step with the new accelerations.
	for i := 0; i < half; i++ {
		result[half+i] = l.scratch[half+i] + dxNew[half+i]*halfDt
	}

	return result
}
