package geom

import (
	"fmt"
	"math"
)

// Vec3 is an arena position, offset or velocity. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

var Up = Vec3{Y: 1}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3       { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3       { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3  { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Len() float64          { return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z) }
func (a Vec3) Dist(b Vec3) float64   { return a.Sub(b).Len() }
func (a Vec3) Flat() Vec3            { return Vec3{X: a.X, Z: a.Z} }
func (a Vec3) DistXZ(b Vec3) float64 { return a.Sub(b).Flat().Len() }

// Normalize returns the unit vector in a's direction, or the zero vector.
func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l < 1e-9 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// MoveTowardsXZ steps from a toward target on the ground plane by at most
// maxStep, keeping a's height. It never overshoots.
func (a Vec3) MoveTowardsXZ(target Vec3, maxStep float64) Vec3 {
	d := target.Sub(a).Flat()
	l := d.Len()
	if l <= maxStep || l < 1e-9 {
		return Vec3{X: target.X, Y: a.Y, Z: target.Z}
	}
	return a.Add(d.Scale(maxStep / l))
}

// Polar returns a ground-plane offset at the given angle (degrees, 0 = +Z)
// and distance.
func Polar(angleDeg, dist float64) Vec3 {
	rad := angleDeg * math.Pi / 180
	return Vec3{X: math.Sin(rad) * dist, Z: math.Cos(rad) * dist}
}

func (a Vec3) String() string { return fmt.Sprintf("(%.2f,%.2f,%.2f)", a.X, a.Y, a.Z) }
