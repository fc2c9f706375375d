package collision

import (
	"fmt"

	"github.com/zeusync/spacewar/pkg/vmath"
)

type testFunc func(a, b Mask) bool

// pairs is indexed by [a.Kind()][b.Kind()]; a nil entry is an unsupported pair.
var pairs = [kindCount][kindCount]testFunc{
	KindLine: {
		KindLine:   nil,
		KindCircle: func(a, b Mask) bool { return lineCircle(a.(Line), b.(Circle)) },
	},
	KindCircle: {
		KindLine:   func(a, b Mask) bool { return lineCircle(b.(Line), a.(Circle)) },
		KindCircle: func(a, b Mask) bool { return circleCircle(a.(Circle), b.(Circle)) },
	},
}

// Test reports whether a and b intersect. It is symmetric. Line against line is
// not implemented and returns ErrUnsupportedPair.
func Test(a, b Mask) (bool, error) {
	if a == nil || b == nil {
		return false, fmt.Errorf("%w: nil mask", ErrUnsupportedPair)
	}
	ka, kb := a.Kind(), b.Kind()
	if ka >= kindCount || kb >= kindCount {
		return false, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, ka, kb)
	}
	fn := pairs[ka][kb]
	if fn == nil {
		return false, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, ka, kb)
	}
	return fn(a, b), nil
}

// Supported reports whether Test handles the pair of kinds.
func Supported(a, b Kind) bool {
	return a < kindCount && b < kindCount && pairs[a][b] != nil
}

func circleCircle(a, b Circle) bool {
	r := a.Radius + b.Radius
	return a.Center.DistSq(b.Center) <= r*r
}

func lineCircle(l Line, c Circle) bool {
	return SegmentDistanceSq(l.Start, l.End, c.Center) <= c.Radius*c.Radius
}

// SegmentDistanceSq is the squared distance from p to the segment a-b. The
// perpendicular foot is clamped to the segment, so points past either end
// measure to that endpoint.
func SegmentDistanceSq(a, b, p vmath.Vec2) float64 {
	ab := b.Sub(a)
	lenSq := ab.LenSq()
	if lenSq == 0 {
		return p.DistSq(a)
	}
	t := p.Sub(a).Dot(ab) / lenSq
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	return p.DistSq(a.Add(ab.Scale(t)))
}
