package body

import "math"

// Vec3 is a cartesian position or velocity.
type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v[0] * f, v[1] * f, v[2] * f}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

func (v Vec3) NormSquared() float64 {
	return v.Dot(v)
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.NormSquared())
}

// Body is a point mass in the simulated system. The identifier is assigned
// by the caller and must be unique within a simulation.
type Body struct {
	ID   string
	Mass float64
	Pos  Vec3
	Vel  Vec3
}

// DistanceSquared returns the squared separation between two bodies.
func DistanceSquared(a, b Body) float64 {
	return a.Pos.Sub(b.Pos).NormSquared()
}

// Merge combines two bodies into a single composite. Total mass and total
// momentum are conserved exactly: the composite mass is the sum of the two
// masses and its position and velocity are the mass-weighted averages of the
// inputs. The composite keeps the identifier of a, the first body in
// iteration order.
func Merge(a, b Body) Body {
	total := a.Mass + b.Mass
	return Body{
		ID:   a.ID,
		Mass: total,
		Pos:  a.Pos.Scale(a.Mass / total).Add(b.Pos.Scale(b.Mass / total)),
		Vel:  a.Vel.Scale(a.Mass / total).Add(b.Vel.Scale(b.Mass / total)),
	}
}

// COM returns the center-of-mass position and velocity of the given bodies
// along with the total mass.
func COM(bodies []Body) (pos, vel Vec3, mass float64) {
	for _, b := range bodies {
		mass += b.Mass
	}
	if mass == 0 {
		return
	}
	for _, b := range bodies {
		pos = pos.Add(b.Pos.Scale(b.Mass / mass))
		vel = vel.Add(b.Vel.Scale(b.Mass / mass))
	}
	return
}
