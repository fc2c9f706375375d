package spatial

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/pkg/vmath"
)

func newGrid(t *testing.T, cfg Config) *Grid {
	t.Helper()
	g, err := NewGrid(cfg)
	require.NoError(t, err)
	return g
}

func TestGrid_CellOf(t *testing.T) {
	g := newGrid(t, Config{Width: 10000, Height: 10000, CellWidth: 1000, CellHeight: 1000})

	cols, rows := g.Dims()
	assert.Equal(t, 12, cols)
	assert.Equal(t, 12, rows)

	tests := []struct {
		name string
		p    vmath.Vec2
		want Cell
		err  bool
	}{
		{name: "inner", p: vmath.V2(5200, 120), want: Cell{6, 1}},
		{name: "first cell", p: vmath.V2(100, 100), want: Cell{1, 1}},
		{name: "origin", p: vmath.V2(0, 0), want: Cell{1, 1}},
		{name: "last cell", p: vmath.V2(9999.5, 9999.5), want: Cell{10, 10}},
		{name: "negative x", p: vmath.V2(-200, 200), err: true},
		{name: "at width", p: vmath.V2(10000, 5), err: true},
		{name: "beyond height", p: vmath.V2(5, 12000), err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.CellOf(tt.p)
			if tt.err {
				assert.ErrorIs(t, err, ErrOutOfBounds)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, _ := g.CellOf(tt.p)
			assert.Equal(t, got, again)
		})
	}
}

func TestGrid_InsertOutOfBoundsNotClamped(t *testing.T) {
	g := newGrid(t, Config{Width: 100, Height: 100, CellWidth: 10, CellHeight: 10})

	err := g.Insert(1, vmath.V2(-1, 50))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Zero(t, g.Len())

	require.NoError(t, g.Insert(1, vmath.V2(5, 5)))
	_, err = g.Relocate(1, vmath.V2(150, 5))
	assert.ErrorIs(t, err, ErrOutOfBounds)

	c, ok := g.Locate(1)
	require.True(t, ok)
	assert.Equal(t, Cell{1, 1}, c)
}

// neighborhoodFixture places nine entities in an 800x800 world of 200x200 cells.
func neighborhoodFixture(t *testing.T, shape Neighborhood) *Grid {
	g := newGrid(t, Config{Width: 800, Height: 800, CellWidth: 200, CellHeight: 200, Neighborhood: shape})
	placements := map[models.EntityID]vmath.Vec2{
		0: vmath.V2(100, 100),
		1: vmath.V2(500, 100),
		2: vmath.V2(100, 700),
		3: vmath.V2(700, 100),
		4: vmath.V2(300, 300),
		5: vmath.V2(500, 500),
		6: vmath.V2(450, 250),
		8: vmath.V2(700, 700),
		9: vmath.V2(700, 300),
	}
	for id, p := range placements {
		require.NoError(t, g.Insert(id, p))
	}
	require.NoError(t, g.Audit())
	return g
}

func TestGrid_QueryNeighborhood(t *testing.T) {
	g := neighborhoodFixture(t, Neighborhood3x3)

	tests := []struct {
		at   vmath.Vec2
		want []models.EntityID
	}{
		{vmath.V2(450, 450), []models.EntityID{4, 5, 6, 8, 9}},
		{vmath.V2(300, 300), []models.EntityID{0, 1, 4, 5, 6}},
		{vmath.V2(100, 100), []models.EntityID{0, 4}},
	}

	for _, tt := range tests {
		got, err := g.QueryNeighborhood(tt.at)
		require.NoError(t, err)
		assert.ElementsMatch(t, tt.want, got, "near %v", tt.at)
	}

	_, err := g.QueryNeighborhood(vmath.V2(900, 10))
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestGrid_QueryNeighborhood3x2(t *testing.T) {
	g := neighborhoodFixture(t, Neighborhood3x2)

	got, err := g.QueryNeighborhood(vmath.V2(300, 300))
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.EntityID{0, 1, 4, 6}, got)
}

func TestGrid_RelocateIdempotent(t *testing.T) {
	g := newGrid(t, Config{Width: 1000, Height: 1000, CellWidth: 100, CellHeight: 100})
	require.NoError(t, g.Insert(7, vmath.V2(150, 150)))

	moved, err := g.Relocate(7, vmath.V2(160, 190))
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = g.Relocate(7, vmath.V2(450, 150))
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = g.Relocate(7, vmath.V2(450, 150))
	require.NoError(t, err)
	assert.False(t, moved)

	assert.Equal(t, []models.EntityID{7}, g.CellMembers(Cell{5, 2}))
	assert.Empty(t, g.CellMembers(Cell{2, 2}))
	assert.NoError(t, g.Audit())
}

func TestGrid_RemoveAndReinsert(t *testing.T) {
	g := newGrid(t, Config{Width: 1000, Height: 1000, CellWidth: 100, CellHeight: 100})
	require.NoError(t, g.Insert(1, vmath.V2(10, 10)))
	assert.ErrorIs(t, g.Insert(1, vmath.V2(20, 20)), ErrAlreadyPlaced)

	require.NoError(t, g.Remove(1))
	assert.ErrorIs(t, g.Remove(1), ErrNotPresent)
	_, err := g.Relocate(1, vmath.V2(10, 10))
	assert.ErrorIs(t, err, ErrNotPresent)

	require.NoError(t, g.Insert(1, vmath.V2(20, 20)))
	assert.Equal(t, 1, g.Len())
}

func TestGrid_RelocateIsAtomicForReaders(t *testing.T) {
	g := newGrid(t, Config{Width: 800, Height: 800, CellWidth: 200, CellHeight: 200})
	require.NoError(t, g.Insert(1, vmath.V2(300, 300)))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		left, right := vmath.V2(300, 300), vmath.V2(500, 300)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			target := left
			if i%2 == 0 {
				target = right
			}
			_, _ = g.Relocate(1, target)
		}
	}()

	for i := 0; i < 2000; i++ {
		got, err := g.QueryNeighborhood(vmath.V2(300, 300))
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	close(stop)
	wg.Wait()
	assert.NoError(t, g.Audit())
}

func TestConfig_Validate(t *testing.T) {
	_, err := NewGrid(Config{Width: 100, Height: 100, CellWidth: 0, CellHeight: 10})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewGrid(Config{Width: 100, Height: 100, CellWidth: 200, CellHeight: 10})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	n, err := ParseNeighborhood("3x2")
	require.NoError(t, err)
	assert.Equal(t, Neighborhood3x2, n)
	_, err = ParseNeighborhood("5x5")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
