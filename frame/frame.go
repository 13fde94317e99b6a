// Package frame rasterizes flock views with gg for PNG export, both for the
// observer server and for headless frame dumps.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/pthm-cable/boids/components"
)

// Colors used by Render.
var (
	Background    = color.RGBA{12, 14, 24, 255}
	BoidColor     = color.RGBA{200, 220, 255, 255}
	PredatedColor = color.RGBA{255, 170, 60, 255}
	PredatorColor = color.RGBA{230, 40, 40, 255}
)

const (
	boidSize     = 7.0  // Half-length of a boid triangle, world units
	predatorSize = 14.0 // Half-length of the predator triangle, world units
	minPixels    = 1.5  // Smallest half-length drawn at any scale
)

// Bounds on the output width accepted by Render.
const (
	MinWidth = 16
	MaxWidth = 4096
)

// Render draws views over a worldW x worldH arena scaled to the given pixel
// width. The height keeps the arena's aspect ratio. width is clamped to
// [MinWidth, MaxWidth].
func Render(views []components.AgentView, worldW, worldH float64, width int) image.Image {
	width = min(max(width, MinWidth), MaxWidth)
	scale := float64(width) / worldW
	height := max(int(math.Round(worldH*scale)), 1)

	dc := gg.NewContext(width, height)
	dc.SetColor(Background)
	dc.Clear()

	// Predator last so it stays on top
	var predator *components.AgentView
	for i := range views {
		v := &views[i]
		if v.IsPredator {
			predator = v
			continue
		}
		col := BoidColor
		if v.Predated {
			col = PredatedColor
		}
		drawAgent(dc, v, scale, boidSize, col)
	}
	if predator != nil {
		drawAgent(dc, predator, scale, predatorSize, PredatorColor)
	}

	return dc.Image()
}

// drawAgent draws an isoceles triangle pointing along the agent's velocity.
func drawAgent(dc *gg.Context, v *components.AgentView, scale, size float64, col color.Color) {
	s := max(size*scale, minPixels)
	heading := math.Atan2(v.VY, v.VX)

	dc.Push()
	dc.Translate(v.X*scale, v.Y*scale)
	dc.Rotate(heading)
	dc.MoveTo(s, 0)
	dc.LineTo(-s*0.6, s*0.5)
	dc.LineTo(-s*0.6, -s*0.5)
	dc.ClosePath()
	dc.SetColor(col)
	dc.Fill()
	dc.Pop()
}

// EncodePNG renders views and writes them to w as PNG.
func EncodePNG(w io.Writer, views []components.AgentView, worldW, worldH float64, width int) error {
	dc := gg.NewContextForImage(Render(views, worldW, worldH, width))
	return dc.EncodePNG(w)
}

// Recorder dumps every Nth tick to numbered PNG files.
type Recorder struct {
	dir   string
	every int64
	width int
}

// NewRecorder creates dir and returns a recorder writing every `every` ticks.
// Returns nil if dir is empty.
func NewRecorder(dir string, every, width int) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating frames directory: %w", err)
	}
	return &Recorder{dir: dir, every: int64(max(every, 1)), width: width}, nil
}

// Capture writes the frame for tick if it falls on the recording interval
// and returns the written path, or "" when skipped.
func (r *Recorder) Capture(tick int64, views []components.AgentView, worldW, worldH float64) (string, error) {
	if r == nil || tick%r.every != 0 {
		return "", nil
	}

	path := filepath.Join(r.dir, fmt.Sprintf("frame_%08d.png", tick))
	dc := gg.NewContextForImage(Render(views, worldW, worldH, r.width))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("saving frame %d: %w", tick, err)
	}
	return path, nil
}
