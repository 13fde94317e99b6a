package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Viewer overlays.
const (
	OverlayFullGlyph      OverlayID = "full_glyph"
	OverlayDensity        OverlayID = "density"
	OverlayNearestNetwork OverlayID = "nearest_network"
	OverlayPerf           OverlayID = "perf"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID        OverlayID
	Name      string      // Checkbox label
	Key       int32       // Keyboard toggle (0 = none)
	Exclusive []OverlayID // Overlays turned off when this one is turned on
}

// OverlayRegistry holds overlay state in registration order.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with the viewer's overlays, all off.
func NewOverlayRegistry() *OverlayRegistry {
	r := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}

	r.Register(OverlayDescriptor{ID: OverlayFullGlyph, Name: "Draw Full Boid Glyph", Key: rl.KeyG})
	r.Register(OverlayDescriptor{
		ID:        OverlayDensity,
		Name:      "Show density",
		Key:       rl.KeyD,
		Exclusive: []OverlayID{OverlayNearestNetwork},
	})
	r.Register(OverlayDescriptor{
		ID:        OverlayNearestNetwork,
		Name:      "Show nearest neighbours",
		Key:       rl.KeyN,
		Exclusive: []OverlayID{OverlayDensity},
	})
	r.Register(OverlayDescriptor{ID: OverlayPerf, Name: "Show tick phases", Key: rl.KeyP})

	return r
}

// Register adds an overlay, initially disabled.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = false
}

// Toggle flips an overlay and returns its new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	r.SetEnabled(id, !r.enabled[id])
	return r.enabled[id]
}

// SetEnabled sets an overlay's state. Enabling turns off its exclusives.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}

	r.enabled[id] = enabled
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// All returns the overlays in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	return r.descriptors
}

// HandleKeyPress toggles the overlay bound to key. Reports whether one was.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool) {
	if key == 0 {
		return "", false
	}
	for _, desc := range r.descriptors {
		if desc.Key == key {
			r.Toggle(desc.ID)
			return desc.ID, true
		}
	}
	return "", false
}
