package integrators

import (
	"fmt"

	"github.com/kepler-sim/orbitlab/internal/ode"
)

// New returns the named integrator. Names match the CLI and config values.
func New(name string) (ode.Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	case "leapfrog":
		return NewLeapfrog(), nil
	case "rk45":
		return NewRK45(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s (euler, rk4, leapfrog, rk45)", name)
	}
}

// Names lists the available integrators in a stable order.
func Names() []string {
	return []string{"euler", "rk4", "leapfrog", "rk45"}
}
