package collision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/pkg/vmath"
)

func hit(t *testing.T, a, b Mask) bool {
	t.Helper()
	ab, err := Test(a, b)
	require.NoError(t, err)
	ba, err := Test(b, a)
	require.NoError(t, err)
	require.Equal(t, ab, ba, "Test must be symmetric")
	return ab
}

func TestLineCircle_MovingShapes(t *testing.T) {
	circle := Circle{Center: vmath.V2(30, 30), Radius: 15}
	line := Line{Start: vmath.V2(5, 20), End: vmath.V2(20, 10)}

	circle.Center.X = 50
	assert.False(t, hit(t, circle, line))

	line.End = vmath.V2(50, 30)
	assert.True(t, hit(t, circle, line))

	line.Start.X = 49
	line.End.Y = 49
	assert.True(t, hit(t, circle, line))
}

func TestLineCircle_ClampsToSegment(t *testing.T) {
	// The infinite line passes through the centre but the segment stops short.
	line := Line{Start: vmath.V2(0, 0), End: vmath.V2(10, 0)}
	assert.False(t, hit(t, line, Circle{Center: vmath.V2(20, 0), Radius: 5}))
	assert.True(t, hit(t, line, Circle{Center: vmath.V2(14, 0), Radius: 5}))
	assert.True(t, hit(t, line, Circle{Center: vmath.V2(5, 3), Radius: 5}))

	point := Line{Start: vmath.V2(1, 1), End: vmath.V2(1, 1)}
	assert.True(t, hit(t, point, Circle{Center: vmath.V2(2, 1), Radius: 1}))
}

func TestCircleCircle(t *testing.T) {
	a := Circle{Center: vmath.V2(0, 0), Radius: 2}
	assert.True(t, hit(t, a, Circle{Center: vmath.V2(3, 0), Radius: 1}))
	assert.False(t, hit(t, a, Circle{Center: vmath.V2(3.01, 0), Radius: 1}))
	assert.True(t, hit(t, a, a.Translate(vmath.V2(1, 1))))
}

func TestLineLineUnsupported(t *testing.T) {
	a := Line{Start: vmath.V2(0, 0), End: vmath.V2(10, 10)}
	b := Line{Start: vmath.V2(0, 10), End: vmath.V2(10, 0)}

	_, err := Test(a, b)
	assert.ErrorIs(t, err, ErrUnsupportedPair)
	assert.False(t, Supported(KindLine, KindLine))
	assert.True(t, Supported(KindCircle, KindLine))

	// the failure is local to that call
	assert.True(t, hit(t, a, Circle{Center: vmath.V2(5, 5), Radius: 1}))
}

func TestTranslate(t *testing.T) {
	l := Line{Start: vmath.V2(1, 2), End: vmath.V2(3, 4)}.Translate(vmath.V2(10, 10)).(Line)
	assert.Equal(t, vmath.V2(11, 12), l.Start)
	assert.Equal(t, vmath.V2(13, 14), l.End)
}
