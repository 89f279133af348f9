package orbit

import (
	"math"

	"github.com/kepler-sim/orbitlab/internal/body"
)

const (
	eccentricityTol = 1e-8
	planarTol       = 1e-10
)

// Elements are classical osculating orbital elements about a central mass
// with gravitational parameter mu. Angles are in radians.
type Elements struct {
	A       float64 // semi-major axis
	E       float64 // eccentricity
	I       float64 // inclination
	RAAN    float64 // right ascension of the ascending node
	ArgPeri float64 // argument of periapsis
	Nu      float64 // true anomaly
}

// Period returns the orbital period. It is only meaningful for bound
// orbits (a > 0).
func (el Elements) Period(mu float64) float64 {
	return 2 * math.Pi * math.Sqrt(el.A*el.A*el.A/mu)
}

func clampAcos(x float64) float64 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return math.Acos(x)
}

func wrapTwoPi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}

// FromRV computes osculating elements from a relative position and velocity,
// following Vallado's RV2COE. Degenerate angles (circular or equatorial
// orbits) collapse to zero rather than NaN.
func FromRV(r, v body.Vec3, mu float64) Elements {
	h := r.Cross(v)
	n := body.Vec3{0, 0, 1}.Cross(h)
	rn := r.Norm()
	vn := v.Norm()

	xi := vn*vn/2 - mu/rn
	a := -mu / (2 * xi)

	eVec := r.Scale(vn*vn - mu/rn).Sub(v.Scale(r.Dot(v))).Scale(1 / mu)
	e := eVec.Norm()

	i := clampAcos(h[2] / h.Norm())

	nn := n.Norm()
	var raan float64
	if nn > planarTol {
		raan = clampAcos(n[0] / nn)
		if n[1] < 0 {
			raan = 2*math.Pi - raan
		}
	}

	var argp float64
	switch {
	case e <= eccentricityTol:
		// Circular: periapsis undefined.
	case nn > planarTol:
		argp = clampAcos(n.Dot(eVec) / (nn * e))
		if eVec[2] < 0 {
			argp = 2*math.Pi - argp
		}
	default:
		// Equatorial: measure periapsis from the x axis.
		argp = wrapTwoPi(math.Atan2(eVec[1], eVec[0]))
	}

	var nu float64
	if e > eccentricityTol {
		nu = clampAcos(eVec.Dot(r) / (e * rn))
		if r.Dot(v) < 0 {
			nu = 2*math.Pi - nu
		}
	} else if nn > planarTol {
		// Circular inclined: argument of latitude from the node.
		nu = clampAcos(n.Dot(r) / (nn * rn))
		if r[2] < 0 {
			nu = 2*math.Pi - nu
		}
	} else {
		// Circular equatorial: true longitude from the x axis.
		nu = wrapTwoPi(math.Atan2(r[1], r[0]))
	}

	return Elements{
		A:       a,
		E:       e,
		I:       wrapTwoPi(i),
		RAAN:    wrapTwoPi(raan),
		ArgPeri: wrapTwoPi(argp),
		Nu:      wrapTwoPi(nu),
	}
}

// RV returns the position and velocity of a body on this orbit, in the frame
// of the central mass. The perifocal state is rotated through the 3-1-3
// angle sequence (RAAN, inclination, argument of periapsis).
func (el Elements) RV(mu float64) (r, v body.Vec3) {
	p := el.A * (1 - el.E*el.E)
	cosNu := math.Cos(el.Nu)
	sinNu := math.Sin(el.Nu)

	rMag := p / (1 + el.E*cosNu)
	rPF := body.Vec3{rMag * cosNu, rMag * sinNu, 0}

	vCoef := math.Sqrt(mu / p)
	vPF := body.Vec3{-vCoef * sinNu, vCoef * (el.E + cosNu), 0}

	r = rotPerifocal(rPF, el.RAAN, el.I, el.ArgPeri)
	v = rotPerifocal(vPF, el.RAAN, el.I, el.ArgPeri)
	return
}

func rotPerifocal(p body.Vec3, raan, inc, argp float64) body.Vec3 {
	return rotZ(rotX(rotZ(p, argp), inc), raan)
}

func rotZ(p body.Vec3, angle float64) body.Vec3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return body.Vec3{
		c*p[0] - s*p[1],
		s*p[0] + c*p[1],
		p[2],
	}
}

func rotX(p body.Vec3, angle float64) body.Vec3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return body.Vec3{
		p[0],
		c*p[1] - s*p[2],
		s*p[1] + c*p[2],
	}
}
