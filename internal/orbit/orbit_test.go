package orbit

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/kepler-sim/orbitlab/internal/body"
)

func TestFromRV_CircularEquatorial(t *testing.T) {
	g := NewWithT(t)

	mu := 1.0
	r := body.Vec3{1, 0, 0}
	v := body.Vec3{0, 1, 0} // circular speed at radius 1

	el := FromRV(r, v, mu)

	g.Expect(el.A).To(BeNumerically("~", 1.0, 1e-12))
	g.Expect(el.E).To(BeNumerically("<", 1e-10))
	g.Expect(el.I).To(BeNumerically("<", 1e-10))
}

func TestFromRV_EllipticPeriapsis(t *testing.T) {
	g := NewWithT(t)

	// Periapsis of an a=1, e=0.5 orbit: r = a(1-e) = 0.5,
	// v = sqrt(mu*(2/r - 1/a)) = sqrt(3).
	mu := 1.0
	r := body.Vec3{0.5, 0, 0}
	v := body.Vec3{0, math.Sqrt(3), 0}

	el := FromRV(r, v, mu)

	g.Expect(el.A).To(BeNumerically("~", 1.0, 1e-12))
	g.Expect(el.E).To(BeNumerically("~", 0.5, 1e-12))
	g.Expect(el.Nu).To(BeNumerically("~", 0.0, 1e-8))
}

func TestElements_RoundTrip(t *testing.T) {
	g := NewWithT(t)

	mu := 1.0
	cases := []Elements{
		{A: 1.25, E: 0.1, I: 0.2, RAAN: 0.5, ArgPeri: 1.0, Nu: 0.3},
		{A: 2.0, E: 0.6, I: 1.1, RAAN: 2.2, ArgPeri: 0.4, Nu: 2.9},
		{A: 1.0, E: 0.3, I: 0, RAAN: 0, ArgPeri: 0.7, Nu: 1.2},
	}

	for _, want := range cases {
		r, v := want.RV(mu)
		got := FromRV(r, v, mu)

		g.Expect(got.A).To(BeNumerically("~", want.A, 1e-9))
		g.Expect(got.E).To(BeNumerically("~", want.E, 1e-9))
		g.Expect(got.I).To(BeNumerically("~", want.I, 1e-9))
		g.Expect(got.Nu).To(BeNumerically("~", want.Nu, 1e-8))
	}
}

func TestElements_RoundTripEquatorial(t *testing.T) {
	g := NewWithT(t)

	mu := 1.0
	want := Elements{A: 1.25, E: 0.2, Nu: 0.8}

	r, v := want.RV(mu)
	got := FromRV(r, v, mu)

	g.Expect(got.A).To(BeNumerically("~", want.A, 1e-9))
	g.Expect(got.E).To(BeNumerically("~", want.E, 1e-9))
	// With i=0 and RAAN=0 the periapsis longitude lands in ArgPeri.
	g.Expect(got.ArgPeri).To(BeNumerically("~", 0.0, 1e-8))
	g.Expect(got.Nu).To(BeNumerically("~", want.Nu, 1e-8))
}

func TestRV_VisViva(t *testing.T) {
	g := NewWithT(t)

	mu := 1.5
	el := Elements{A: 1.25, E: 0.4, Nu: 2.0}

	r, v := el.RV(mu)

	// vis-viva: v^2 = mu*(2/r - 1/a)
	want := mu * (2/r.Norm() - 1/el.A)
	g.Expect(v.NormSquared()).To(BeNumerically("~", want, 1e-12))
}

func TestPeriod(t *testing.T) {
	el := Elements{A: 1.0}
	if got := el.Period(1.0); math.Abs(got-2*math.Pi) > 1e-12 {
		t.Errorf("period = %v, want 2*pi", got)
	}
}
