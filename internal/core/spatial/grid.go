package spatial

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/pkg/vmath"
)

var (
	ErrOutOfBounds   = errors.New("position outside world bounds")
	ErrNotPresent    = errors.New("entity not in grid")
	ErrAlreadyPlaced = errors.New("entity already in grid")
	ErrInvalidConfig = errors.New("invalid grid config")
)

// Neighborhood selects which block of cells around the query cell is visited.
type Neighborhood uint8

const (
	// Neighborhood3x3 visits the query cell and its eight neighbours.
	Neighborhood3x3 Neighborhood = iota
	// Neighborhood3x2 visits three columns on the query row and the row above it.
	Neighborhood3x2
)

func (n Neighborhood) String() string {
	switch n {
	case Neighborhood3x3:
		return "3x3"
	case Neighborhood3x2:
		return "3x2"
	default:
		return fmt.Sprintf("neighborhood(%d)", uint8(n))
	}
}

func ParseNeighborhood(s string) (Neighborhood, error) {
	switch s {
	case "", "3x3":
		return Neighborhood3x3, nil
	case "3x2":
		return Neighborhood3x2, nil
	default:
		return 0, fmt.Errorf("%w: unknown neighborhood %q", ErrInvalidConfig, s)
	}
}

func (n Neighborhood) rows() (from, to int) {
	if n == Neighborhood3x2 {
		return -1, 0
	}
	return -1, 1
}

type Config struct {
	Width        float64
	Height       float64
	CellWidth    float64
	CellHeight   float64
	Neighborhood Neighborhood
}

func (c Config) Validate() error {
	if !(c.Width > 0) || !(c.Height > 0) {
		return fmt.Errorf("%w: world %vx%v", ErrInvalidConfig, c.Width, c.Height)
	}
	if !(c.CellWidth > 0) || !(c.CellHeight > 0) {
		return fmt.Errorf("%w: cell %vx%v", ErrInvalidConfig, c.CellWidth, c.CellHeight)
	}
	if c.CellWidth > c.Width || c.CellHeight > c.Height {
		return fmt.Errorf("%w: cell larger than world", ErrInvalidConfig)
	}
	if c.Neighborhood > Neighborhood3x2 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Neighborhood)
	}
	return nil
}

// Cell addresses a grid cell. Column and row 0 and the last column and row are a
// margin that no in-bounds position maps to, so neighbourhood scans never index
// outside the grid.
type Cell struct {
	X, Y int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Grid is a uniform bucket grid of entity ids. Every placed entity is in exactly
// one cell. All methods are safe for concurrent use.
type Grid struct {
	mu     sync.RWMutex
	cfg    Config
	cols   int
	rows   int
	cells  []map[models.EntityID]struct{}
	locate map[models.EntityID]int
}

func NewGrid(cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cols := int(math.Ceil(cfg.Width/cfg.CellWidth)) + 2
	rows := int(math.Ceil(cfg.Height/cfg.CellHeight)) + 2

	return &Grid{
		cfg:    cfg,
		cols:   cols,
		rows:   rows,
		cells:  make([]map[models.EntityID]struct{}, cols*rows),
		locate: make(map[models.EntityID]int),
	}, nil
}

func (g *Grid) Config() Config { return g.cfg }

// Dims returns the number of columns and rows including the margin.
func (g *Grid) Dims() (cols, rows int) {
	return g.cols, g.rows
}

// CellOf maps a position to its cell. Positions outside [0,width)x[0,height)
// are rejected, never clamped.
func (g *Grid) CellOf(p vmath.Vec2) (Cell, error) {
	if !(p.X >= 0 && p.X < g.cfg.Width && p.Y >= 0 && p.Y < g.cfg.Height) {
		return Cell{}, fmt.Errorf("%w: (%v,%v) not in %vx%v", ErrOutOfBounds, p.X, p.Y, g.cfg.Width, g.cfg.Height)
	}
	return Cell{
		X: int(math.Floor(p.X/g.cfg.CellWidth)) + 1,
		Y: int(math.Floor(p.Y/g.cfg.CellHeight)) + 1,
	}, nil
}

// Contains reports whether p is inside the world.
func (g *Grid) Contains(p vmath.Vec2) bool {
	_, err := g.CellOf(p)
	return err == nil
}

func (g *Grid) index(c Cell) int {
	return c.Y*g.cols + c.X
}

func (g *Grid) cellAt(i int) Cell {
	return Cell{X: i % g.cols, Y: i / g.cols}
}

func (g *Grid) Insert(id models.EntityID, p vmath.Vec2) error {
	c, err := g.CellOf(p)
	if err != nil {
		return fmt.Errorf("insert %s: %w", id, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if at, ok := g.locate[id]; ok {
		return fmt.Errorf("insert %s: %w at %s", id, ErrAlreadyPlaced, g.cellAt(at))
	}
	g.add(id, g.index(c))
	return nil
}

func (g *Grid) Remove(id models.EntityID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	at, ok := g.locate[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotPresent)
	}
	g.drop(id, at)
	return nil
}

// Relocate moves id to the cell of p in one step: observers never see it in zero
// cells or in two. It reports whether the cell changed. An out-of-bounds p leaves
// the entity where it was.
func (g *Grid) Relocate(id models.EntityID, p vmath.Vec2) (bool, error) {
	c, err := g.CellOf(p)
	if err != nil {
		return false, fmt.Errorf("relocate %s: %w", id, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	at, ok := g.locate[id]
	if !ok {
		return false, fmt.Errorf("relocate %s: %w", id, ErrNotPresent)
	}
	target := g.index(c)
	if at == target {
		return false, nil
	}
	g.drop(id, at)
	g.add(id, target)
	return true, nil
}

func (g *Grid) Locate(id models.EntityID) (Cell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	at, ok := g.locate[id]
	if !ok {
		return Cell{}, false
	}
	return g.cellAt(at), true
}

func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.locate)
}

// CellMembers returns the ids in one cell.
func (g *Grid) CellMembers(c Cell) []models.EntityID {
	if c.X < 0 || c.Y < 0 || c.X >= g.cols || c.Y >= g.rows {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	members := g.cells[g.index(c)]
	out := make([]models.EntityID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// QueryNeighborhood returns every id in the block of cells around p selected by
// the configured Neighborhood. Order is unspecified.
func (g *Grid) QueryNeighborhood(p vmath.Vec2) ([]models.EntityID, error) {
	return g.AppendNeighborhood(nil, p)
}

// AppendNeighborhood is QueryNeighborhood appending into dst.
func (g *Grid) AppendNeighborhood(dst []models.EntityID, p vmath.Vec2) ([]models.EntityID, error) {
	c, err := g.CellOf(p)
	if err != nil {
		return dst, fmt.Errorf("query: %w", err)
	}

	from, to := g.cfg.Neighborhood.rows()

	g.mu.RLock()
	defer g.mu.RUnlock()

	for dy := from; dy <= to; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for id := range g.cells[g.index(Cell{X: c.X + dx, Y: c.Y + dy})] {
				dst = append(dst, id)
			}
		}
	}
	return dst, nil
}

// Audit checks that the cell sets and the id index agree and that each id is
// in exactly one cell.
func (g *Grid) Audit() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[models.EntityID]int, len(g.locate))
	for i, members := range g.cells {
		for id := range members {
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("%s in cells %s and %s", id, g.cellAt(prev), g.cellAt(i))
			}
			seen[id] = i
			if g.locate[id] != i {
				return fmt.Errorf("%s in cell %s but indexed at %s", id, g.cellAt(i), g.cellAt(g.locate[id]))
			}
		}
	}
	if len(seen) != len(g.locate) {
		return fmt.Errorf("index holds %d ids, cells hold %d", len(g.locate), len(seen))
	}
	return nil
}

func (g *Grid) add(id models.EntityID, at int) {
	if g.cells[at] == nil {
		g.cells[at] = make(map[models.EntityID]struct{}, 4)
	}
	g.cells[at][id] = struct{}{}
	g.locate[id] = at
}

func (g *Grid) drop(id models.EntityID, at int) {
	delete(g.cells[at], id)
	delete(g.locate, id)
}
