package game

import rl "github.com/gen2brain/raylib-go/raylib"

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	// Window resize propagation
	if rl.IsWindowResized() {
		g.cam.Resize(float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight()))
	}

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.TogglePause()
	}

	// Right click selects the nearest agent or clears the selection
	if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		m := rl.GetMousePosition()
		g.ToggleSelection(g.cam.ScreenToWorld(m.X, m.Y))
	}

	for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
		g.overlays.HandleKeyPress(key)
	}

	g.handleCameraInput()
}

// handleCameraInput processes camera pan and zoom controls.
func (g *Game) handleCameraInput() {
	const panSpeed = 8.0

	if rl.IsKeyDown(rl.KeyRight) {
		g.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.cam.Pan(0, -panSpeed)
	}

	// Middle drag pans
	if rl.IsMouseButtonDown(rl.MouseButtonMiddle) {
		d := rl.GetMouseDelta()
		g.cam.Pan(float64(-d.X), float64(-d.Y))
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.cam.ZoomBy(1 + float64(wheel)*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.cam.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.cam.Reset()
	}
}
