package vmath

import "math"

// Vec2 is a float64 2D vector used for world positions and velocities.
type Vec2 struct {
	X, Y float64
}

func V2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) LenSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

func (v Vec2) Len() float64 {
	return math.Sqrt(v.LenSq())
}

// Normalize returns the unit vector, zero-safe.
func (v Vec2) Normalize() Vec2 {
	mag := v.Len()
	if mag == 0 {
		return Vec2{}
	}
	inv := 1.0 / mag
	return Vec2{v.X * inv, v.Y * inv}
}

// ClampLen limits the vector length to max while preserving direction.
func (v Vec2) ClampLen(max float64) Vec2 {
	sq := v.LenSq()
	if sq <= max*max || sq == 0 {
		return v
	}
	return v.Scale(max / math.Sqrt(sq))
}

func (v Vec2) DistSq(o Vec2) float64 {
	return v.Sub(o).LenSq()
}

// Perp is v rotated a quarter turn counter-clockwise.
func (v Vec2) Perp() Vec2 {
	return Vec2{-v.Y, v.X}
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// FromAngle returns the unit vector for a heading in radians, 0 pointing along +X.
func FromAngle(rad float64) Vec2 {
	s, c := math.Sincos(rad)
	return Vec2{c, s}
}

// WrapAngle maps an angle into [0, 2π).
func WrapAngle(rad float64) float64 {
	rad = math.Mod(rad, 2*math.Pi)
	if rad < 0 {
		rad += 2 * math.Pi
	}
	return rad
}
