// Package systems provides the geometry, indexing and force computations that
// drive the flock.
package systems

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
)

// hashEntry is one agent reference in a bucket. The cell key disambiguates
// cells that collide on the same bucket.
type hashEntry struct {
	h    components.Handle
	cell int32
}

// SpatialHash maps grid cells to the agents inside them through a fixed number
// of hash buckets. Cell coordinates wrap modulo the grid dimensions, so
// lookups near an edge see agents across the wrap.
//
// The index is rebuilt from scratch every tick: Clear, then Insert every agent
// once. Queries are safe from many goroutines as long as nothing inserts.
type SpatialHash struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	buckets     [][]hashEntry
	count       int
}

// NewSpatialHash creates an index over a width x height domain.
// The caller validates that the dimensions are multiples of cellSize.
func NewSpatialHash(width, height, cellSize, hashSize, initialCap int) *SpatialHash {
	if initialCap < 1 {
		initialCap = 1
	}

	buckets := make([][]hashEntry, hashSize)
	for i := range buckets {
		buckets[i] = make([]hashEntry, 0, initialCap)
	}

	return &SpatialHash{
		cellSize:    float64(cellSize),
		invCellSize: 1 / float64(cellSize),
		cols:        width / cellSize,
		rows:        height / cellSize,
		buckets:     buckets,
	}
}

// Cols returns the number of grid columns.
func (g *SpatialHash) Cols() int { return g.cols }

// Rows returns the number of grid rows.
func (g *SpatialHash) Rows() int { return g.rows }

// CellSize returns the cell edge length in world units.
func (g *SpatialHash) CellSize() float64 { return g.cellSize }

// Len returns the number of agents inserted since the last Clear.
func (g *SpatialHash) Len() int { return g.count }

// Clear empties every bucket, keeping its storage.
func (g *SpatialHash) Clear() {
	for i := range g.buckets {
		g.buckets[i] = g.buckets[i][:0]
	}
	g.count = 0
}

// Cell returns the wrapped grid cell containing p.
func (g *SpatialHash) Cell(p r2.Vec) (cx, cy int) {
	cx = int(math.Floor(p.X * g.invCellSize))
	cy = int(math.Floor(p.Y * g.invCellSize))
	return wrapMod(cx, g.cols), wrapMod(cy, g.rows)
}

// Insert adds h at position p. An agent must be inserted at most once per
// rebuild; there is no deduplication.
func (g *SpatialHash) Insert(h components.Handle, p r2.Vec) {
	cx, cy := g.Cell(p)
	idx := g.bucketIndex(cx, cy)

	b := g.buckets[idx]
	if len(b) == cap(b) {
		// Double rather than let append pick, so growth is observable
		grown := make([]hashEntry, len(b), max(2*cap(b), 1))
		copy(grown, b)
		slog.Debug("spatial hash bucket grown",
			"cell_x", cx, "cell_y", cy,
			"old_cap", cap(b), "new_cap", cap(grown),
		)
		b = grown
	}
	g.buckets[idx] = append(b, hashEntry{h: h, cell: g.cellKey(cx, cy)})
	g.count++
}

// Query appends to dst every agent in the (2r+1)² block of cells centered on
// (cx, cy) and returns the extended slice. Reuse dst across calls to avoid
// allocations. A block wider than the grid is truncated to the grid so no
// cell is visited twice.
func (g *SpatialHash) Query(dst []components.Handle, cx, cy, r int) []components.Handle {
	spanX := min(2*r+1, g.cols)
	spanY := min(2*r+1, g.rows)

	for dy := 0; dy < spanY; dy++ {
		y := wrapMod(cy-r+dy, g.rows)
		for dx := 0; dx < spanX; dx++ {
			x := wrapMod(cx-r+dx, g.cols)
			dst = g.appendCell(dst, x, y)
		}
	}
	return dst
}

// RingFits reports whether the ring at Chebyshev distance k fits in the grid
// without wrapping onto itself.
func (g *SpatialHash) RingFits(k int) bool {
	return 2*k+1 <= g.cols && 2*k+1 <= g.rows
}

// QueryRing appends the agents in cells at Chebyshev distance exactly k from
// (cx, cy). Callers must check RingFits(k) first; a ring that wraps onto
// itself would report cells twice.
func (g *SpatialHash) QueryRing(dst []components.Handle, cx, cy, k int) []components.Handle {
	if k == 0 {
		return g.appendCell(dst, cx, cy)
	}

	top := wrapMod(cy-k, g.rows)
	bottom := wrapMod(cy+k, g.rows)
	for dx := -k; dx <= k; dx++ {
		x := wrapMod(cx+dx, g.cols)
		dst = g.appendCell(dst, x, top)
		dst = g.appendCell(dst, x, bottom)
	}

	left := wrapMod(cx-k, g.cols)
	right := wrapMod(cx+k, g.cols)
	for dy := -k + 1; dy < k; dy++ {
		y := wrapMod(cy+dy, g.rows)
		dst = g.appendCell(dst, left, y)
		dst = g.appendCell(dst, right, y)
	}
	return dst
}

// CellLen returns the number of agents in cell (cx, cy).
func (g *SpatialHash) CellLen(cx, cy int) int {
	cx, cy = wrapMod(cx, g.cols), wrapMod(cy, g.rows)
	key := g.cellKey(cx, cy)

	n := 0
	for _, e := range g.buckets[g.bucketIndex(cx, cy)] {
		if e.cell == key {
			n++
		}
	}
	return n
}

// appendCell appends the agents of one already-wrapped cell.
func (g *SpatialHash) appendCell(dst []components.Handle, cx, cy int) []components.Handle {
	key := g.cellKey(cx, cy)
	for _, e := range g.buckets[g.bucketIndex(cx, cy)] {
		if e.cell == key {
			dst = append(dst, e.h)
		}
	}
	return dst
}

// bucketIndex hashes a wrapped cell coordinate to a bucket.
func (g *SpatialHash) bucketIndex(cx, cy int) int {
	h := uint32(cx)*73856093 ^ uint32(cy)*19349669
	return int(h % uint32(len(g.buckets)))
}

func (g *SpatialHash) cellKey(cx, cy int) int32 {
	return int32(cy*g.cols + cx)
}
