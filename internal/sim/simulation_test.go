package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/integrators"
	"github.com/kepler-sim/orbitlab/internal/ode"
)

func TestAdd_DuplicateID(t *testing.T) {
	s := newTestSim(t, body.Body{ID: "sun", Mass: 1})

	err := s.Add(body.Body{ID: "sun", Mass: 2})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("err = %v, want ErrDuplicateID", err)
	}
	if s.N() != 1 {
		t.Errorf("n = %d after rejected add", s.N())
	}
}

func TestAdd_Validation(t *testing.T) {
	s := newTestSim(t)

	if err := s.Add(body.Body{ID: "", Mass: 1}); err == nil {
		t.Error("expected error for empty identifier")
	}
	if err := s.Add(body.Body{ID: "x", Mass: 0}); err == nil {
		t.Error("expected error for non-positive mass")
	}
}

func TestRemove_Unknown(t *testing.T) {
	s := newTestSim(t, body.Body{ID: "sun", Mass: 1})

	if err := s.Remove("ghost"); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("err = %v, want ErrUnknownBody", err)
	}
	if err := s.Remove("sun"); err != nil {
		t.Errorf("remove existing: %v", err)
	}
	if s.N() != 0 {
		t.Errorf("n = %d, want 0", s.N())
	}
}

func TestMoveToCOM(t *testing.T) {
	s := newTestSim(t,
		body.Body{ID: "sun", Mass: 1, Vel: body.Vec3{0, 0, 0}},
		body.Body{ID: "p1", Mass: 1e-3, Pos: body.Vec3{1, 0, 0}, Vel: body.Vec3{0, 1, 0}},
	)

	s.MoveToCOM()

	p := s.Momentum()
	if p.Norm() > 1e-15 {
		t.Errorf("momentum after MoveToCOM = %v, want ~0", p)
	}
}

func TestAddOrbit_ElementsRoundTrip(t *testing.T) {
	s := newTestSim(t, body.Body{ID: "sun", Mass: 1})

	if err := s.AddOrbit("p1", 1e-3, 1.25, 0.1, 0); err != nil {
		t.Fatalf("AddOrbit: %v", err)
	}

	el, err := s.Elements("p1")
	if err != nil {
		t.Fatalf("Elements: %v", err)
	}
	if math.Abs(el.A-1.25) > 1e-9 {
		t.Errorf("a = %v, want 1.25", el.A)
	}
	if math.Abs(el.E-0.1) > 1e-9 {
		t.Errorf("e = %v, want 0.1", el.E)
	}
}

func TestAddOrbit_RequiresPrimary(t *testing.T) {
	s := newTestSim(t)
	if err := s.AddOrbit("p1", 1e-3, 1, 0, 0); !errors.Is(err, ErrNoBodies) {
		t.Errorf("err = %v, want ErrNoBodies", err)
	}
}

func TestElements_Errors(t *testing.T) {
	s := newTestSim(t, body.Body{ID: "sun", Mass: 1})

	if _, err := s.Elements("sun"); !errors.Is(err, ErrTooFewBodies) {
		t.Errorf("single body: err = %v, want ErrTooFewBodies", err)
	}

	if err := s.AddOrbit("p1", 1e-3, 1, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Elements("sun"); err == nil {
		t.Error("expected error querying elements of the primary")
	}
	if _, err := s.Elements("ghost"); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("err = %v, want ErrUnknownBody", err)
	}
}

func TestIntegrate_CircularOrbitConservesEnergy(t *testing.T) {
	s := newTestSim(t, body.Body{ID: "sun", Mass: 1})
	if err := s.AddOrbit("p1", 1e-3, 1, 0, 0); err != nil {
		t.Fatal(err)
	}
	s.MoveToCOM()
	s.SetStep(1e-3)

	e0 := s.Energy()

	if err := s.Integrate(context.Background(), 2*math.Pi); err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	drift := math.Abs(s.Energy()-e0) / math.Abs(e0)
	if drift > 1e-6 {
		t.Errorf("energy drift = %.2e over one period", drift)
	}
	if math.Abs(s.Time()-2*math.Pi) > 1e-9 {
		t.Errorf("t = %v, want 2*pi", s.Time())
	}
}

func TestIntegrate_DetectsCloseEncounter(t *testing.T) {
	// Two unit masses falling head-on from rest must cross the threshold.
	s := newTestSim(t,
		body.Body{ID: "a", Mass: 1, Pos: body.Vec3{-1, 0, 0}},
		body.Body{ID: "b", Mass: 1, Pos: body.Vec3{1, 0, 0}},
	)
	s.SetStep(1e-3)
	s.SetMinDistance(0.5)

	err := s.Integrate(context.Background(), 10)

	var enc *CloseEncounter
	if !errors.As(err, &enc) {
		t.Fatalf("err = %v, want *CloseEncounter", err)
	}
	if enc.First != "a" || enc.Second != "b" {
		t.Errorf("pair = %s, %s", enc.First, enc.Second)
	}
	if enc.Distance >= 0.5 {
		t.Errorf("distance = %v, want < threshold", enc.Distance)
	}
	if enc.Time != s.Time() {
		t.Errorf("encounter time %v != sim time %v", enc.Time, s.Time())
	}
	if s.Time() >= 10 {
		t.Error("integration should have stopped before the target time")
	}

	// State must reflect the encounter step so the caller can merge.
	a, _ := s.Body("a")
	b, _ := s.Body("b")
	if d := a.Pos.Sub(b.Pos).Norm(); math.Abs(d-enc.Distance) > 1e-12 {
		t.Errorf("live separation %v != reported %v", d, enc.Distance)
	}
}

func TestIntegrate_MergeAndResume(t *testing.T) {
	s := newTestSim(t,
		body.Body{ID: "a", Mass: 1, Pos: body.Vec3{-1, 0, 0}},
		body.Body{ID: "b", Mass: 1, Pos: body.Vec3{1, 0, 0}},
	)
	s.SetStep(1e-3)
	s.SetMinDistance(0.5)

	const until = 5.0
	merges := 0
	for {
		err := s.Integrate(context.Background(), until)
		if err == nil {
			break
		}
		var enc *CloseEncounter
		if !errors.As(err, &enc) {
			t.Fatalf("Integrate: %v", err)
		}
		if _, err := s.MergeClosestPair(); err != nil {
			t.Fatalf("merge: %v", err)
		}
		merges++
	}

	if merges != 1 {
		t.Errorf("merges = %d, want 1", merges)
	}
	if s.N() != 1 {
		t.Errorf("n = %d, want 1", s.N())
	}
	if math.Abs(s.Time()-until) > 1e-9 {
		t.Errorf("t = %v, want %v", s.Time(), until)
	}

	// The merged body carries the pair's total mass and momentum (zero).
	merged, ok := s.Body("a")
	if !ok {
		t.Fatal("expected surviving body a")
	}
	if merged.Mass != 2 {
		t.Errorf("mass = %v, want 2", merged.Mass)
	}
	if merged.Vel.Norm() > 1e-12 {
		t.Errorf("velocity = %v, want 0 (symmetric infall)", merged.Vel)
	}
}

func TestIntegrate_ContextCancellation(t *testing.T) {
	s := newTestSim(t, body.Body{ID: "sun", Mass: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Integrate(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestIntegrate_TimeBackwards(t *testing.T) {
	s := newTestSim(t, body.Body{ID: "sun", Mass: 1})
	if err := s.Integrate(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Integrate(context.Background(), 0.5); !errors.Is(err, ErrTimeBackwards) {
		t.Errorf("err = %v, want ErrTimeBackwards", err)
	}
}

func TestIntegrate_NoBodies(t *testing.T) {
	s := newTestSim(t)
	if err := s.Integrate(context.Background(), 1); !errors.Is(err, ErrNoBodies) {
		t.Errorf("err = %v, want ErrNoBodies", err)
	}
}

func TestIntegrate_AdaptiveReachesTarget(t *testing.T) {
	s := New(1.0, integrators.NewRK45())
	if err := s.Add(body.Body{ID: "sun", Mass: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddOrbit("p1", 1e-3, 1, 0.2, 0); err != nil {
		t.Fatal(err)
	}
	s.MoveToCOM()
	s.SetStep(1e-2)
	s.SetTolerance(1e-10)

	e0 := s.Energy()
	if err := s.Integrate(context.Background(), 2*math.Pi); err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	if math.Abs(s.Time()-2*math.Pi) > 1e-9 {
		t.Errorf("t = %v, want 2*pi", s.Time())
	}
	drift := math.Abs(s.Energy()-e0) / math.Abs(e0)
	if drift > 1e-6 {
		t.Errorf("energy drift = %.2e", drift)
	}
}

// truncatingIntegrator returns a state of the wrong dimension.
type truncatingIntegrator struct{}

func (truncatingIntegrator) Step(sys ode.System, x ode.State, t, dt float64) ode.State {
	return x[:len(x)-1].Clone()
}

func TestIntegrate_RejectsDimensionMismatch(t *testing.T) {
	s := New(1.0, truncatingIntegrator{})
	if err := s.Add(body.Body{ID: "sun", Mass: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(body.Body{ID: "p1", Mass: 1e-3, Pos: body.Vec3{1, 0, 0}}); err != nil {
		t.Fatal(err)
	}

	err := s.Integrate(context.Background(), 1.0)
	if !errors.Is(err, ode.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	var stepErr *ode.StepError
	if !errors.As(err, &stepErr) {
		t.Fatal("expected a StepError wrapper")
	}
	// The rejected step must not corrupt the body set.
	if s.N() != 2 {
		t.Errorf("n = %d after rejected step", s.N())
	}
}

type countingObserver struct {
	calls int
	last  float64
}

func (c *countingObserver) OnStep(bodies []body.Body, t float64) {
	c.calls++
	c.last = t
}

func TestIntegrate_ObserverSeesEveryStep(t *testing.T) {
	s := newTestSim(t, body.Body{ID: "sun", Mass: 1, Vel: body.Vec3{1, 0, 0}})
	s.SetStep(0.1)

	obs := &countingObserver{}
	s.AddObserver(obs)

	if err := s.Integrate(context.Background(), 1.0); err != nil {
		t.Fatal(err)
	}

	if obs.calls != 10 {
		t.Errorf("observer calls = %d, want 10", obs.calls)
	}
	if math.Abs(obs.last-1.0) > 1e-9 {
		t.Errorf("last observed t = %v, want 1.0", obs.last)
	}
}
