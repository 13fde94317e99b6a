// Package ui draws the viewer's heads-up display and operator controls.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds UI styling constants.
type Theme struct {
	PanelBg     rl.Color
	PanelBorder rl.Color
	Title       rl.Color
	Label       rl.Color
	Value       rl.Color
	Accent      rl.Color
	Warning     rl.Color
	Padding     int32
	LineHeight  int32
	FontSize    int32
	TitleSize   int32
	ValueSize   int32
}

// DefaultTheme returns the light theme used over the arena background.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:     rl.Color{R: 245, G: 245, B: 245, A: 220},
		PanelBorder: rl.Color{R: 180, G: 180, B: 190, A: 255},
		Title:       rl.DarkGray,
		Label:       rl.DarkGray,
		Value:       rl.Blue,
		Accent:      rl.Color{R: 0, G: 121, B: 241, A: 255},
		Warning:     rl.Orange,
		Padding:     10,
		LineHeight:  30,
		FontSize:    20,
		TitleSize:   28,
		ValueSize:   30,
	}
}

// DrawPanel draws a panel background with border.
func (t Theme) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, t.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, t.PanelBorder)
}
