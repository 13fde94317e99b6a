package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boids/telemetry"
)

// HUDData holds everything the heads-up display shows.
type HUDData struct {
	Title        string
	Width        int
	Height       int
	Drawn        int
	FrameTime    time.Duration
	Workers      int
	Tick         int64
	Paused       bool
	Polarization float64
	Selected     string // Description of the debug agent, empty when none
}

// HUD renders the stats block in the top-left corner.
type HUD struct {
	theme Theme
}

// NewHUD creates a HUD with the default theme.
func NewHUD() *HUD {
	return &HUD{theme: DefaultTheme()}
}

// Draw renders the HUD.
func (h *HUD) Draw(d HUDData) {
	t := h.theme
	x := int32(20)

	rl.DrawText(d.Title, x, 10, t.FontSize, t.Title)
	rl.DrawText("Current Resolution:", x, 30, t.FontSize, t.Label)
	rl.DrawText(fmt.Sprintf("%d x %d", d.Width, d.Height), x, 50, t.ValueSize, t.Value)
	rl.DrawText(fmt.Sprintf("Boids drawn: %d", d.Drawn), x, 80, t.ValueSize, t.Value)
	rl.DrawText(fmt.Sprintf("Frame Time: %0.2f ms", float64(d.FrameTime.Microseconds())/1000), x, 110, t.ValueSize, t.Value)
	rl.DrawText(fmt.Sprintf("Workers: %d", d.Workers), x, 140, t.ValueSize, t.Value)
	rl.DrawText(fmt.Sprintf("Tick: %d  Polarization: %.2f", d.Tick, d.Polarization), x, 175, t.FontSize, t.Label)

	y := int32(200)
	if d.Paused {
		rl.DrawText("PAUSED [space]", x, y, t.FontSize, t.Warning)
		y += 25
	}
	if d.Selected != "" {
		rl.DrawText(d.Selected, x, y, t.FontSize, t.Accent)
	}
}

// DrawControls renders the key legend along the bottom edge.
func (h *HUD) DrawControls(screenHeight int32, legend string) {
	rl.DrawText(legend, 20, screenHeight-25, 16, rl.Gray)
}

// PerfPanel shows the average time spent in each tick phase and the load
// per worker.
type PerfPanel struct {
	theme Theme
	x, y  int32
}

// NewPerfPanel creates a panel anchored at (x, y).
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{theme: DefaultTheme(), x: x, y: y}
}

// Draw renders the phase breakdown.
func (p *PerfPanel) Draw(stats telemetry.PerfStats, phases []string) {
	const width, line = 300, 18
	p.theme.DrawPanel(p.x, p.y, width, int32(len(phases)+3)*line+p.theme.Padding)

	x, y := p.x+p.theme.Padding, p.y+p.theme.Padding/2
	rl.DrawText(fmt.Sprintf("Tick %s  (%.0f tps)", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond),
		x, y, 16, p.theme.Title)
	y += line + 4

	for _, phase := range phases {
		pct := stats.PhasePct[phase]
		col := p.theme.Label
		if pct > 50 {
			col = p.theme.Warning
		}
		rl.DrawText(fmt.Sprintf("%-10s %8s %5.1f%%", phase, stats.PhaseAvg[phase].Round(time.Microsecond), pct),
			x, y, 14, col)
		y += line
	}

	rl.DrawText(fmt.Sprintf("%.0f agents/worker  %.2fM upd/s", stats.AgentsPerWorker, stats.AgentUpdatesPerSec/1e6),
		x, y, 14, p.theme.Label)
}
