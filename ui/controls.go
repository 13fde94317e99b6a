package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boids/flock"
)

// Weight slider range.
const (
	MinWeight = 0.0
	MaxWeight = 10.0
)

// ControlsPanel holds the overlay checkboxes and the behaviour weight
// sliders.
type ControlsPanel struct {
	theme Theme
	x, y  float32
}

// NewControlsPanel creates a panel anchored at (x, y).
func NewControlsPanel(x, y float32) *ControlsPanel {
	return &ControlsPanel{theme: DefaultTheme(), x: x, y: y}
}

// Draw renders the controls and applies any changes to overlays and params.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry, params *flock.TickParams) {
	y := c.y

	for _, desc := range overlays.All() {
		checked := overlays.IsEnabled(desc.ID)
		bounds := rl.Rectangle{X: c.x, Y: y, Width: 24, Height: 24}
		if next := gui.CheckBox(bounds, desc.Name, checked); next != checked {
			overlays.SetEnabled(desc.ID, next)
		}
		y += 30
	}

	y += 30
	rl.DrawText("Boid Behaviour Weights", int32(c.x), int32(y), c.theme.TitleSize, c.theme.Title)
	y += 40

	params.AlignmentWeight = c.slider(&y, "Alignment", params.AlignmentWeight)
	params.CohesionWeight = c.slider(&y, "Cohesion", params.CohesionWeight)
	params.SeparationWeight = c.slider(&y, "Separation", params.SeparationWeight)
}

// slider draws one labelled weight slider and advances y.
func (c *ControlsPanel) slider(y *float32, name string, value float64) float64 {
	rl.DrawText(fmt.Sprintf("%s (%.2f)", name, value), int32(c.x), int32(*y), c.theme.FontSize, c.theme.Label)
	*y += 22

	bounds := rl.Rectangle{X: c.x, Y: *y, Width: 300, Height: 24}
	next := gui.SliderBar(bounds, "0", "10", float32(value), MinWeight, MaxWeight)
	*y += 40

	return ClampWeight(float64(next))
}

// ClampWeight limits a weight to the slider range.
func ClampWeight(w float64) float64 {
	return min(max(w, MinWeight), MaxWeight)
}
