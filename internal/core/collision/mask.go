package collision

import (
	"errors"
	"fmt"

	"github.com/zeusync/spacewar/pkg/vmath"
)

var ErrUnsupportedPair = errors.New("collision pair not supported")

// Kind tags the shape variants. It indexes the pair table.
type Kind uint8

const (
	KindLine Kind = iota
	KindCircle

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindCircle:
		return "circle"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Mask is a collision shape. The set of variants is closed: Line and Circle.
type Mask interface {
	Kind() Kind
	// Translate returns the mask moved by d.
	Translate(d vmath.Vec2) Mask
	mask()
}

// Line is a segment from Start to End.
type Line struct {
	Start, End vmath.Vec2
}

func (Line) Kind() Kind { return KindLine }
func (Line) mask()      {}

func (l Line) Translate(d vmath.Vec2) Mask {
	return Line{Start: l.Start.Add(d), End: l.End.Add(d)}
}

type Circle struct {
	Center vmath.Vec2
	Radius float64
}

func (Circle) Kind() Kind { return KindCircle }
func (Circle) mask()      {}

func (c Circle) Translate(d vmath.Vec2) Mask {
	return Circle{Center: c.Center.Add(d), Radius: c.Radius}
}
