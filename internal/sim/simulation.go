package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-kit/kit/log"

	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/gravity"
	"github.com/kepler-sim/orbitlab/internal/ode"
	"github.com/kepler-sim/orbitlab/internal/orbit"
)

const (
	// DefaultStep is the default integration step size.
	DefaultStep = 1e-3

	// DefaultTolerance is the default local error tolerance for adaptive
	// integrators.
	DefaultTolerance = 1e-9

	minStep = 1e-13
	timeEps = 1e-12
)

var (
	ErrNoBodies      = errors.New("sim: simulation has no bodies")
	ErrTooFewBodies  = errors.New("sim: operation requires at least two bodies")
	ErrDuplicateID   = errors.New("sim: duplicate body identifier")
	ErrUnknownBody   = errors.New("sim: unknown body identifier")
	ErrTimeBackwards = errors.New("sim: target time is before current time")
)

// Observer is notified after every accepted integration step with a snapshot
// of the live bodies.
type Observer interface {
	OnStep(bodies []body.Body, t float64)
}

// Simulation owns the live particle collection and advances it in time. It
// is a plain mutable value threaded explicitly through setup, integration
// and merging; it is not safe for concurrent use.
type Simulation struct {
	G float64

	bodies      []body.Body
	integ       ode.Integrator
	dt          float64
	tol         float64
	minDistance float64
	softening   float64
	t           float64
	step        int
	logger      log.Logger
	observers   []Observer
}

func New(g float64, integ ode.Integrator) *Simulation {
	return &Simulation{
		G:      g,
		integ:  integ,
		dt:     DefaultStep,
		tol:    DefaultTolerance,
		logger: log.NewNopLogger(),
	}
}

func (s *Simulation) SetStep(dt float64)        { s.dt = dt }
func (s *Simulation) SetTolerance(tol float64)  { s.tol = tol }
func (s *Simulation) SetSoftening(eps float64)  { s.softening = eps }
func (s *Simulation) SetLogger(l log.Logger)    { s.logger = log.With(l, "subsys", "sim") }
func (s *Simulation) AddObserver(o Observer)    { s.observers = append(s.observers, o) }

// SetMinDistance configures the close-encounter detection threshold. A zero
// or negative value disables detection.
func (s *Simulation) SetMinDistance(d float64) { s.minDistance = d }

func (s *Simulation) Time() float64 { return s.t }
func (s *Simulation) N() int        { return len(s.bodies) }

// Add inserts a body into the live collection. Identifiers must be non-empty
// and unique.
func (s *Simulation) Add(b body.Body) error {
	if b.ID == "" {
		return errors.New("sim: body identifier must not be empty")
	}
	if b.Mass <= 0 {
		return fmt.Errorf("sim: body %s mass must be positive, got %g", b.ID, b.Mass)
	}
	for _, have := range s.bodies {
		if have.ID == b.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
	}
	s.bodies = append(s.bodies, b)
	return nil
}

// AddOrbit inserts a body on an orbit of the given semi-major axis,
// eccentricity and true anomaly around the primary (the first body added).
func (s *Simulation) AddOrbit(id string, mass, a, e, nu float64) error {
	if len(s.bodies) == 0 {
		return fmt.Errorf("sim: cannot place %s on an orbit: %w", id, ErrNoBodies)
	}
	primary := s.bodies[0]
	mu := s.G * (primary.Mass + mass)
	r, v := orbit.Elements{A: a, E: e, Nu: nu}.RV(mu)
	return s.Add(body.Body{
		ID:   id,
		Mass: mass,
		Pos:  primary.Pos.Add(r),
		Vel:  primary.Vel.Add(v),
	})
}

// Remove deletes the body with the given identifier, preserving the order of
// the remaining bodies.
func (s *Simulation) Remove(id string) error {
	for i, b := range s.bodies {
		if b.ID == id {
			s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownBody, id)
}

// Body returns a copy of the body with the given identifier.
func (s *Simulation) Body(id string) (body.Body, bool) {
	for _, b := range s.bodies {
		if b.ID == id {
			return b, true
		}
	}
	return body.Body{}, false
}

// Bodies returns a copy of the live collection in iteration order.
func (s *Simulation) Bodies() []body.Body {
	out := make([]body.Body, len(s.bodies))
	copy(out, s.bodies)
	return out
}

// MoveToCOM shifts all bodies into the center-of-mass frame so that the
// total momentum is zero.
func (s *Simulation) MoveToCOM() {
	pos, vel, mass := body.COM(s.bodies)
	if mass == 0 {
		return
	}
	for i := range s.bodies {
		s.bodies[i].Pos = s.bodies[i].Pos.Sub(pos)
		s.bodies[i].Vel = s.bodies[i].Vel.Sub(vel)
	}
}

// Elements returns the osculating orbital elements of the named body
// relative to the primary.
func (s *Simulation) Elements(id string) (orbit.Elements, error) {
	if len(s.bodies) < 2 {
		return orbit.Elements{}, ErrTooFewBodies
	}
	primary := s.bodies[0]
	if id == primary.ID {
		return orbit.Elements{}, fmt.Errorf("sim: %s is the primary and has no orbital elements", id)
	}
	b, ok := s.Body(id)
	if !ok {
		return orbit.Elements{}, fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	mu := s.G * (primary.Mass + b.Mass)
	return orbit.FromRV(b.Pos.Sub(primary.Pos), b.Vel.Sub(primary.Vel), mu), nil
}

func (s *Simulation) system() *gravity.System {
	masses := make([]float64, len(s.bodies))
	for i, b := range s.bodies {
		masses[i] = b.Mass
	}
	sys := gravity.New(s.G, masses)
	sys.Softening = s.softening
	return sys
}

// Energy returns the total mechanical energy of the current state.
func (s *Simulation) Energy() float64 {
	return s.system().Energy(gravity.Pack(s.bodies))
}

// Momentum returns the total linear momentum of the current state.
func (s *Simulation) Momentum() body.Vec3 {
	return s.system().Momentum(gravity.Pack(s.bodies))
}

// AngularMomentum returns the total angular momentum of the current state.
func (s *Simulation) AngularMomentum() body.Vec3 {
	return s.system().AngularMomentum(gravity.Pack(s.bodies))
}

// Integrate advances the simulation to the absolute time until. It returns
// nil when the target time is reached, ctx.Err() on cancellation, and a
// *CloseEncounter when any pairwise separation drops below the configured
// minimum distance. In every case the bodies reflect the state at the time
// the call returned, so an encounter can be handled (merged) and the
// integration resumed by calling Integrate again with the same target.
func (s *Simulation) Integrate(ctx context.Context, until float64) error {
	if len(s.bodies) == 0 {
		return ErrNoBodies
	}
	if until < s.t-timeEps {
		return fmt.Errorf("%w: target %g, current %g", ErrTimeBackwards, until, s.t)
	}

	sys := s.system()
	x := gravity.Pack(s.bodies)
	dt := s.dt
	adaptive, isAdaptive := s.integ.(ode.AdaptiveIntegrator)
	minD2 := s.minDistance * s.minDistance

	for s.t < until-timeEps {
		select {
		case <-ctx.Done():
			gravity.Unpack(x, s.bodies)
			return ctx.Err()
		default:
		}

		h := math.Min(dt, until-s.t)

		var xNew ode.State
		if isAdaptive {
			var dtNext float64
			var err error
			xNew, dtNext, err = adaptive.StepAdaptive(sys, x, s.t, h, s.tol)
			if err != nil {
				gravity.Unpack(x, s.bodies)
				return &ode.StepError{Step: s.step, Time: s.t, Wrapped: err}
			}
			if dtNext < minStep {
				gravity.Unpack(x, s.bodies)
				return &ode.StepError{Step: s.step, Time: s.t, Wrapped: ode.ErrStepTooSmall}
			}
			dt = dtNext
		} else {
			xNew = s.integ.Step(sys, x, s.t, h)
		}

		if len(xNew) != sys.Dim() {
			gravity.Unpack(x, s.bodies)
			return &ode.StepError{Step: s.step, Time: s.t, Wrapped: ode.ErrDimensionMismatch}
		}
		if !xNew.IsValid() {
			gravity.Unpack(x, s.bodies)
			return &ode.StepError{Step: s.step, Time: s.t, Wrapped: ode.ErrInvalidState}
		}

		x = xNew
		s.t += h
		s.step++

		if len(s.observers) > 0 {
			gravity.Unpack(x, s.bodies)
			snapshot := s.Bodies()
			for _, o := range s.observers {
				o.OnStep(snapshot, s.t)
			}
		}

		if s.minDistance > 0 && len(s.bodies) >= 2 {
			if i, j, d2 := sys.MinSeparation(x); d2 < minD2 {
				gravity.Unpack(x, s.bodies)
				enc := &CloseEncounter{
					Time:     s.t,
					First:    s.bodies[i].ID,
					Second:   s.bodies[j].ID,
					Distance: math.Sqrt(d2),
				}
				s.logger.Log("level", "notice", "event", "encounter",
					"t", s.t, "first", enc.First, "second", enc.Second, "d", enc.Distance)
				return enc
			}
		}
	}

	gravity.Unpack(x, s.bodies)
	return nil
}
