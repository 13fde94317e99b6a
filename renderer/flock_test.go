package renderer

import (
	"math"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func TestGlyphVertices(t *testing.T) {
	tests := []struct {
		name     string
		vx, vy   float32
		wantTipX float32
		wantTipY float32
	}{
		{"east", 1, 0, 115, 100},
		{"south", 0, 3, 100, 115},
		{"west", -2, 0, 85, 100},
		{"zero velocity", 0, 0, 115, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tip, left, right := GlyphVertices(100, 100, tt.vx, tt.vy, 10)
			if math.Abs(float64(tip.X-tt.wantTipX)) > 1e-4 || math.Abs(float64(tip.Y-tt.wantTipY)) > 1e-4 {
				t.Errorf("tip = (%v, %v), want (%v, %v)", tip.X, tip.Y, tt.wantTipX, tt.wantTipY)
			}

			// Rear corners sit at the glyph radius, mirrored about the heading
			for _, v := range []rl.Vector2{left, right} {
				d := math.Hypot(float64(v.X-100), float64(v.Y-100))
				if math.Abs(d-10) > 1e-4 {
					t.Errorf("rear corner at distance %v, want 10", d)
				}
			}
		})
	}
}

func TestDensityAlpha(t *testing.T) {
	tests := []struct {
		count, max int
		want       uint8
	}{
		{0, 10, 0},
		{-1, 10, 0},
		{5, 0, 0},
		{5, 10, maxDensityAlpha / 2},
		{10, 10, maxDensityAlpha},
		{50, 10, maxDensityAlpha},
	}

	for _, tt := range tests {
		if got := DensityAlpha(tt.count, tt.max); got != tt.want {
			t.Errorf("DensityAlpha(%d, %d) = %d, want %d", tt.count, tt.max, got, tt.want)
		}
	}
}

func TestBlockCells(t *testing.T) {
	tests := []struct {
		name       string
		cx, cy, k  int
		cols, rows int
		wantLen    int
	}{
		{"interior", 5, 5, 1, 10, 10, 9},
		{"corner wraps", 0, 0, 1, 10, 10, 9},
		{"block covers grid", 1, 1, 3, 4, 4, 16},
		{"radius zero", 3, 2, 0, 8, 8, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := BlockCells(tt.cx, tt.cy, tt.k, tt.cols, tt.rows)
			if len(cells) != tt.wantLen {
				t.Errorf("got %d cells, want %d", len(cells), tt.wantLen)
			}
			for _, c := range cells {
				if c.X < 0 || c.X >= tt.cols || c.Y < 0 || c.Y >= tt.rows {
					t.Errorf("cell %+v outside %dx%d grid", c, tt.cols, tt.rows)
				}
			}
		})
	}

	// The corner block reaches across both seams
	want := map[Cell]bool{{9, 9}: true, {0, 9}: true, {9, 0}: true}
	for _, c := range BlockCells(0, 0, 1, 10, 10) {
		delete(want, c)
	}
	if len(want) != 0 {
		t.Errorf("wrapped cells missing: %v", want)
	}
}

// fixedViewport is a viewport shifted by (ox, oy) at the given scale that
// shows everything left of maxX.
type fixedViewport struct {
	ox, oy, scale float64
	maxX          float64
}

func (v fixedViewport) WorldToScreen(x, y float64) (float32, float32) {
	return float32((x + v.ox) * v.scale), float32((y + v.oy) * v.scale)
}

func (v fixedViewport) Scale() float32 { return float32(v.scale) }

func (v fixedViewport) Visible(x, _, radius float64) bool { return x-radius < v.maxX }

func TestCellRect(t *testing.T) {
	vp := fixedViewport{ox: 10, oy: 0, scale: 2, maxX: 200}

	rect, ok := cellRect(1, 2, 50, vp)
	if !ok {
		t.Fatal("visible cell reported hidden")
	}
	want := rl.Rectangle{X: 120, Y: 200, Width: 100, Height: 100}
	if rect != want {
		t.Errorf("cellRect = %+v, want %+v", rect, want)
	}

	if _, ok := cellRect(6, 0, 50, vp); ok {
		t.Error("cell beyond the viewport reported visible")
	}
}
